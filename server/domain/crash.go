package domain

import (
	"bytes"
	"fmt"
	"io"
	"time"
)

// CrashReport はプロセスを終了させるべき内部エラーの構造化レポートです。
// error として返され、上位（ホスト）がファイルへ書き出してプロセスを終了します。
type CrashReport struct {
	Title string
	Cause error
	Time  time.Time

	categories []*CrashCategory
}

func NewCrashReport(title string, cause error) *CrashReport {
	return &CrashReport{
		Title: title,
		Cause: cause,
		Time:  time.Now(),
	}
}

// Category はカテゴリを追加して返します。
func (c *CrashReport) Category(name string) *CrashCategory {
	cat := &CrashCategory{Name: name}
	c.categories = append(c.categories, cat)
	return cat
}

func (c *CrashReport) Categories() []*CrashCategory { return c.categories }

func (c *CrashReport) Error() string {
	if c.Cause == nil {
		return c.Title
	}
	return c.Title + ": " + c.Cause.Error()
}

func (c *CrashReport) Unwrap() error { return c.Cause }

// Detail は指定カテゴリの詳細を評価して返します。
func (c *CrashReport) Detail(category, key string) (string, bool) {
	for _, cat := range c.categories {
		if cat.Name != category {
			continue
		}
		for _, d := range cat.details {
			if d.key == key {
				return d.value(), true
			}
		}
	}
	return "", false
}

// WriteTo はレポート全体をテキストで書き出します。
func (c *CrashReport) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "---- Crash Report ----")
	fmt.Fprintf(&buf, "Time: %s\n", c.Time.Format(time.RFC3339))
	fmt.Fprintf(&buf, "Description: %s\n\n", c.Title)
	if c.Cause != nil {
		fmt.Fprintf(&buf, "%+v\n", c.Cause)
	}
	for _, cat := range c.categories {
		fmt.Fprintf(&buf, "\n-- %s --\nDetails:\n", cat.Name)
		for _, d := range cat.details {
			fmt.Fprintf(&buf, "\t%s: %s\n", d.key, d.value())
		}
	}
	return buf.WriteTo(w)
}

func (c *CrashReport) String() string {
	var buf bytes.Buffer
	_, _ = c.WriteTo(&buf)
	return buf.String()
}

// CrashCategory はレポート内の1セクションです。
type CrashCategory struct {
	Name    string
	details []crashDetail
}

type crashDetail struct {
	key string
	fn  func() (string, error)
}

// value は詳細を遅延評価します。評価自体の失敗でレポートが壊れないようにします。
func (d crashDetail) value() (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = fmt.Sprintf("~~ERROR~~ %v", r)
		}
	}()
	v, err := d.fn()
	if err != nil {
		return "~~ERROR~~ " + err.Error()
	}
	return v
}

// AddDetail は遅延評価される詳細を追加します。
func (cc *CrashCategory) AddDetail(key string, fn func() (string, error)) *CrashCategory {
	cc.details = append(cc.details, crashDetail{key: key, fn: fn})
	return cc
}

func (cc *CrashCategory) AddDetailValue(key, value string) *CrashCategory {
	return cc.AddDetail(key, func() (string, error) { return value, nil })
}
