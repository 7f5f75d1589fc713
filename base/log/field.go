package log

import (
	"fmt"
	"sort"
	"strings"

	"github.com/MapleGits/MapleGame/base/util/byteutil"
)

// Fields 上下文结构，方便在结构体之间传递信息
// 创建后只读，可以在多个协程里共享
type Fields map[string]any

const (
	prefixKey = "__prefix__"
)

func (f Fields) String() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		if k != prefixKey {
			keys = append(keys, k)
		}
	}
	// map遍历无序，排序保证同一个session的日志前缀稳定
	sort.Strings(keys)
	str := make([]string, 0, len(keys)+1)
	if prefix := f.Prefix(); prefix != "" {
		str = append(str, fmt.Sprintf("[%s]", prefix))
	}
	for _, k := range keys {
		str = append(str, fmt.Sprintf("%s=%+v", k, f[k]))
	}
	return strings.Join(str, " ")
}

func (f Fields) prepend(format string) string {
	if len(f) == 0 {
		return format
	}
	return f.String() + " " + format
}

func (f Fields) WithPrefix(prefix string) Fields {
	return MergeFields(f, Fields{prefixKey: prefix})
}

// MergeFields 合并，结果不影响原来的数据
func MergeFields(f Fields, fields ...Fields) Fields {
	all := make(Fields, len(f))
	for k, v := range f {
		all[k] = v
	}
	for _, field := range fields {
		for k, v := range field {
			all[k] = v
		}
	}
	return all
}

func (f Fields) WithFields(fields ...Fields) Fields {
	return MergeFields(f, fields...)
}

func (f Fields) Prefix() string {
	if prefix, ok := f[prefixKey].(string); ok {
		return prefix
	}
	return ""
}

func (f Fields) Debug(format string, a ...any) {
	Debug(f.prepend(format), a...)
}

func (f Fields) Info(format string, a ...any) {
	Info(f.prepend(format), a...)
}

func (f Fields) Warn(format string, a ...any) {
	Warn(f.prepend(format), a...)
}

func (f Fields) Error(format string, a ...any) {
	Error(f.prepend(format), a...)
}

// Hex 打印一段二进制，格式如 "received Ping from x: 11 00 AB"
func (f Fields) Hex(data []byte, format string, a ...any) {
	Hex(data, f.prepend(format), a...)
}

// Hex 以info级别输出format之后紧跟的16进制内容
func Hex(data []byte, format string, a ...any) {
	Info("%s%s", fmt.Sprintf(format, a...), byteutil.BytesToHexString(data, " "))
}
