package builder

import (
	"regexp"
	"strings"
)

var (
	identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// ValidIdentifier 标识符只能以字母或下划线开头, 后面跟字母/数字/下划线
// 标识符不能使用占位符, 所以这里是防止注入的唯一关口
func ValidIdentifier(name string) bool {
	return identifierRe.MatchString(name)
}

func checkIdentifier(name string) error {
	if !ValidIdentifier(name) {
		return illegalIdentifier(name)
	}
	return nil
}

// checkColumn 列名允许带表名或别名前缀: u.id
// select 列表里额外允许 * 和 u.*
func checkColumn(name string, allowStar bool) error {
	parts := strings.Split(name, ".")
	if len(parts) > 2 {
		return illegalIdentifier(name)
	}
	for i, p := range parts {
		if allowStar && p == "*" && i == len(parts)-1 {
			continue
		}
		if !ValidIdentifier(p) {
			return illegalIdentifier(name)
		}
	}
	return nil
}

func checkIdentifiers(names ...string) error {
	for _, n := range names {
		if err := checkIdentifier(n); err != nil {
			return err
		}
	}
	return nil
}

// CountPlaceholders 统计 sql 中 ? 的数量, 引号内的不计算
// 支持 '...' "..." `...` 以及 '' 转义, 不处理 \ 转义, 需要时使用 Dialect.CountPlaceholders
func CountPlaceholders(query string) int {
	return len(placeholderIndexes(query, false))
}

// placeholdersMatch 片段还不知道方言, 两种转义规则有一种匹配即可
// 渲染时会再按方言检查一次
func placeholdersMatch(query string, n int) bool {
	if len(placeholderIndexes(query, false)) == n {
		return true
	}
	return strings.Contains(query, `\`) && len(placeholderIndexes(query, true)) == n
}

// placeholderIndexes 引号外 ? 的字节位置, backslash 为 true 时引号内的 \ 转义下一个字符
func placeholderIndexes(query string, backslash bool) []int {
	var (
		idx     []int
		quote   rune
		escaped bool
	)
	for i, r := range query {
		switch {
		case escaped:
			escaped = false
		case quote != 0:
			if backslash && r == '\\' && quote != '`' {
				escaped = true
			} else if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"' || r == '`':
			quote = r
		case r == '?':
			idx = append(idx, i)
		}
	}
	return idx
}

// placeholders 生成 n 个逗号分隔的 ?
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// errs 记录链式调用过程中产生的第一个错误, 在 Render 时返回
type errs struct {
	err error
}

func (e *errs) add(err error) {
	if e.err == nil && err != nil {
		e.err = err
	}
}
