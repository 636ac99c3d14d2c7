// @title CoderEdu 测评服务 API
// @version 1.0
// @description 测评提交、自动评分与次数控制服务。

// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package main

import (
	"coder_edu_assessment/internal/cli"
	"os"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
