package builder

// Statement 所有语句构建器都实现这个接口
// 每次 Render 都重新生成 sql, 可以对不同方言多次调用
type Statement interface {
	Render(d Dialect) (string, []any, error)
}

// MultiStatement 渲染结果是多条语句的构建器
// prepare 不接受多条语句, 执行时需要按顺序逐条执行
type MultiStatement interface {
	Statement
	Statements(d Dialect) ([]string, error)
}
