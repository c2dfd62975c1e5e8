package crawler

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const sampleListing = `{
	"jobId": "X1",
	"jobName": "Engineer",
	"lowMonthPay": "5",
	"degreeName": "BA",
	"major": null,
	"recTags": null,
	"headCount": "3",
	"sourcesNameCh": null,
	"recName": "Acme",
	"areaCodeName": "City",
	"recScale": null,
	"recProperty": "Private",
	"publishDate": 1700000000000,
	"updateDate": 1700000000000
}`

func payloadWith(listings ...string) []byte {
	return []byte(fmt.Sprintf(`{"data":{"list":[%s]}}`, strings.Join(listings, ",")))
}

func testDescriptor() RequestDescriptor {
	return RequestDescriptor{CategoryCode: "01", Page: 1, URL: "http://example.com"}
}

func TestNormalizeAppliesDefaultsAndConversions(t *testing.T) {
	t.Parallel()

	records, invalid, err := Normalize(payloadWith(sampleListing), testDescriptor(), "计算机/网络/技术类")
	require.NoError(t, err)
	require.Zero(t, invalid)
	require.Len(t, records, 1)

	record := records[0]
	require.Equal(t, "X1", record.JobID)
	require.Equal(t, "Engineer", record.JobName)
	require.Equal(t, 5000, record.Salary)
	require.Equal(t, "BA", record.Degree)
	require.Equal(t, "计算机/网络/技术类", record.Category)
	require.Equal(t, "", record.Major)
	require.Equal(t, "", record.Welfare)
	require.Equal(t, "3", record.HeadCount)
	require.Equal(t, "大学生就业服务平台", record.Source)
	require.Equal(t, "Acme", record.CompanyName)
	require.Equal(t, "City", record.Area)
	require.Equal(t, "", record.CompanyScale)
	require.Equal(t, "Private", record.CompanyProperty)

	want := time.UnixMilli(1700000000000).Local()
	require.Equal(t, want.Year(), record.PublishDate.Year())
	require.Equal(t, want.Month(), record.PublishDate.Month())
	require.Equal(t, want.Day(), record.PublishDate.Day())
	require.Zero(t, record.PublishDate.Hour())
	require.Equal(t, record.PublishDate, record.UpdateDate)
}

func TestNormalizeDropsZeroSalary(t *testing.T) {
	t.Parallel()

	listing := strings.Replace(sampleListing, `"lowMonthPay": "5"`, `"lowMonthPay": "0"`, 1)
	records, invalid, err := Normalize(payloadWith(listing), testDescriptor(), "cat")
	require.NoError(t, err)
	require.Equal(t, 1, invalid)
	require.Empty(t, records)
}

func TestNormalizeDropsEmptyHeadCount(t *testing.T) {
	t.Parallel()

	listing := strings.Replace(sampleListing, `"headCount": "3"`, `"headCount": ""`, 1)
	records, invalid, err := Normalize(payloadWith(listing), testDescriptor(), "cat")
	require.NoError(t, err)
	require.Equal(t, 1, invalid)
	require.Empty(t, records)
}

func TestNormalizeMissingRequiredFieldFailsPayload(t *testing.T) {
	t.Parallel()

	listing := strings.Replace(sampleListing, `"jobName": "Engineer",`, ``, 1)
	records, _, err := Normalize(payloadWith(sampleListing, listing), testDescriptor(), "cat")
	require.Nil(t, records)

	var malformed *MalformedPayloadError
	require.ErrorAs(t, err, &malformed)
	require.Equal(t, "01", malformed.Category)
	require.Equal(t, 1, malformed.Page)
	require.Contains(t, err.Error(), "jobName")
}

func TestNormalizeNullRequiredFieldFailsPayload(t *testing.T) {
	t.Parallel()

	listing := strings.Replace(sampleListing, `"headCount": "3"`, `"headCount": null`, 1)
	_, _, err := Normalize(payloadWith(listing), testDescriptor(), "cat")

	var malformed *MalformedPayloadError
	require.ErrorAs(t, err, &malformed)
}

func TestNormalizeNonNumericSalaryFailsPayload(t *testing.T) {
	t.Parallel()

	listing := strings.Replace(sampleListing, `"lowMonthPay": "5"`, `"lowMonthPay": "negotiable"`, 1)
	_, _, err := Normalize(payloadWith(listing), testDescriptor(), "cat")

	var malformed *MalformedPayloadError
	require.ErrorAs(t, err, &malformed)
}

func TestNormalizeAcceptsNumericIdentifiers(t *testing.T) {
	t.Parallel()

	listing := strings.Replace(sampleListing, `"jobId": "X1"`, `"jobId": 4217`, 1)
	listing = strings.Replace(listing, `"lowMonthPay": "5"`, `"lowMonthPay": 8`, 1)
	records, _, err := Normalize(payloadWith(listing), testDescriptor(), "cat")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "4217", records[0].JobID)
	require.Equal(t, 8000, records[0].Salary)
}

func TestNormalizeTruncatesMajor(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("计", 600)
	listing := strings.Replace(sampleListing, `"major": null`, fmt.Sprintf(`"major": %q`, long), 1)
	records, _, err := Normalize(payloadWith(listing), testDescriptor(), "cat")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, 500, len([]rune(records[0].Major)))
}

func TestNormalizeMalformedEnvelope(t *testing.T) {
	t.Parallel()

	var malformed *MalformedPayloadError

	_, _, err := Normalize([]byte(`not json`), testDescriptor(), "cat")
	require.ErrorAs(t, err, &malformed)

	_, _, err = Normalize([]byte(`{"data":{}}`), testDescriptor(), "cat")
	require.ErrorAs(t, err, &malformed)
}

func TestNormalizeKeepsNamedSource(t *testing.T) {
	t.Parallel()

	listing := strings.Replace(sampleListing, `"sourcesNameCh": null`, `"sourcesNameCh": "某招聘网"`, 1)
	records, _, err := Normalize(payloadWith(listing), testDescriptor(), "cat")
	require.NoError(t, err)
	require.Equal(t, "某招聘网", records[0].Source)
}
