// Package catalog holds the fixed table of upstream job category codes.
package catalog

import "sort"

// names maps the 29 two-digit category codes used by the upstream listing
// API to their display names. The table is fixed for the life of the
// process; stored rows carry the resolved name, not the code.
var names = map[string]string{
	"01": "计算机/网络/技术类",
	"02": "电子/电器/通信技术类",
	"03": "行政/后勤类",
	"04": "翻译类",
	"05": "销售类",
	"06": "客户服务类",
	"07": "市场/公关/媒介类",
	"08": "咨询/顾问类",
	"09": "技工类",
	"10": "财务/审计/统计类",
	"11": "人力资源类",
	"12": "教育/培训类",
	"13": "质量管理类",
	"14": "美术/设计/创意类",
	"15": "金融保险类",
	"16": "贸易/物流/采购/运输类",
	"17": "经营管理类",
	"18": "商业零售类",
	"19": "建筑/房地产/装饰装修/物业管理类",
	"20": "法律类",
	"21": "酒店/餐饮/旅游/服务类",
	"22": "生物/制药/化工/环保类",
	"23": "文体/影视/写作/媒体类",
	"24": "机械/仪器仪表类",
	"25": "科研类",
	"26": "工厂生产类",
	"27": "医疗卫生/美容保健类",
	"28": "电气/能源/动力类",
	"29": "其他类",
}

// Name resolves a zero-padded category code to its display name.
func Name(code string) (string, bool) {
	name, ok := names[code]
	return name, ok
}

// Codes returns every category code in ascending order.
func Codes() []string {
	codes := make([]string, 0, len(names))
	for code := range names {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
