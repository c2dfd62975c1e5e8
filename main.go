// The main package for the ncss-crawler executable.
package main

import (
	"github.com/jobsift/ncss-crawler/cmd"
)

func main() {
	cmd.Execute()
}
