package schema

import "embed"

// Files 暴露报表库的建表语句，按文件名顺序执行。
//
//go:embed *.sql
var Files embed.FS
