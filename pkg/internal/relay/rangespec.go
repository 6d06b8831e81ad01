package relay

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
)

// Unbounded 表示区间终点未知.
const Unbounded int64 = -1

// rangePattern 只识别首个 bytes=<start>-<end>? 区间，其余写法视为未请求区间.
var rangePattern = regexp.MustCompile(`^\s*bytes\s*=\s*(\d+)\s*-\s*(\d*)\s*(?:,|$)`)

// ByteRange 闭区间 [Start, End]，End 为 Unbounded 时直到资源末尾.
type ByteRange struct {
	Start int64
	End   int64
}

// Bounded 终点是否已知.
func (r ByteRange) Bounded() bool {
	return r.End != Unbounded
}

// Length 区间长度，终点未知时为 -1. 超出 int64 时取 math.MaxInt64.
func (r ByteRange) Length() int64 {
	if !r.Bounded() {
		return -1
	}

	if r.End-r.Start >= math.MaxInt64 {
		return math.MaxInt64
	}

	return r.End - r.Start + 1
}

// Header 返回发往上游的 Range 值.
func (r ByteRange) Header() string {
	if !r.Bounded() {
		return fmt.Sprintf("bytes=%d-", r.Start)
	}

	return fmt.Sprintf("bytes=%d-%d", r.Start, r.End)
}

// ParseRange 解析客户端 Range 头. 无法识别时 ok 为 false，调用方按未请求区间处理.
// 省略终点或终点为 math.MaxInt64 时 end 为 Unbounded.
func ParseRange(header string) (start, end int64, ok bool) {
	m := rangePattern.FindStringSubmatch(header)
	if m == nil {
		return 0, 0, false
	}

	start, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, 0, false
	}

	if m[2] == "" {
		return start, Unbounded, true
	}

	end, err = strconv.ParseInt(m[2], 10, 64)
	if err != nil || end < start {
		return 0, 0, false
	}

	if end == math.MaxInt64 {
		return start, Unbounded, true
	}

	return start, end, true
}

// Negotiation 区间协商结果.
type Negotiation struct {
	Range ByteRange
	// Partial 客户端是否请求了区间，决定 206 还是 200.
	Partial bool
	// TotalSize 上游资源大小，未知时为 -1.
	TotalSize int64
}

// Negotiate 根据客户端 Range 头和上游资源大小计算实际区间.
// totalSize < 0 表示未知. 终点超出资源末尾时截断到 totalSize-1，
// 起点不小于已知大小时返回 RangeNotSatisfiable.
func Negotiate(header string, totalSize int64) (Negotiation, error) {
	n := Negotiation{TotalSize: totalSize}

	last := Unbounded
	if totalSize > 0 {
		last = totalSize - 1
	}

	start, end, ok := ParseRange(header)
	if !ok {
		n.Range = ByteRange{Start: 0, End: last}

		return n, nil
	}

	if totalSize >= 0 && start >= totalSize {
		return n, rangeNotSatisfiable(totalSize)
	}

	if end == Unbounded || (totalSize >= 0 && end > last) {
		end = last
	}

	n.Range = ByteRange{Start: start, End: end}
	n.Partial = true

	return n, nil
}

// SizeKnown 上游是否报告了资源大小.
func (n Negotiation) SizeKnown() bool {
	return n.TotalSize >= 0
}

// ContentLength 响应体长度，大小未知时为 -1.
func (n Negotiation) ContentLength() int64 {
	if !n.SizeKnown() {
		return -1
	}

	if n.Range.Bounded() {
		return n.Range.Length()
	}

	return n.TotalSize
}

// ContentRange 返回 "bytes start-end/total"，大小未知时 total 为 "*"；终点也未知时返回空串.
func (n Negotiation) ContentRange() string {
	total := "*"
	if n.SizeKnown() {
		total = strconv.FormatInt(n.TotalSize, 10)
	}

	if n.TotalSize == 0 {
		return "bytes */0"
	}

	if !n.Range.Bounded() {
		return ""
	}

	return fmt.Sprintf("bytes %d-%d/%s", n.Range.Start, n.Range.End, total)
}

// UpstreamRange 发往上游的 Range 值；空资源不发送 Range.
func (n Negotiation) UpstreamRange() string {
	if n.TotalSize == 0 {
		return ""
	}

	return n.Range.Header()
}
