package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	pageWelcome                = "welcome.html"
	pagePasswordReset          = "password_reset.html"
	pagePasswordChanged        = "password_changed.html"
	pagePasswordResetSucceeded = "password_reset_succeeded.html"
)

// view 模板数据
type view struct {
	FirstName       string
	LastName        string
	Link            string
	ExpirationHours int
	DetailsTitle    string
	Time            string
	IPAddress       string
	UserAgent       string
	Year            int
}

// Renderer 渲染邮件 HTML，每个页面与公共布局组成独立的模板集
type Renderer struct {
	pages map[string]*template.Template
	now   func() time.Time
}

// NewRenderer 解析内置模板
func NewRenderer() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template), now: time.Now}
	for _, page := range []string{pageWelcome, pagePasswordReset, pagePasswordChanged, pagePasswordResetSucceeded} {
		t, err := template.New(page).ParseFS(templateFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("notify: parse %s: %w", page, err)
		}
		r.pages[page] = t
	}
	return r, nil
}

func (r *Renderer) render(page string, v view) (string, error) {
	t, ok := r.pages[page]
	if !ok {
		return "", fmt.Errorf("notify: unknown template %s", page)
	}
	v.Year = r.now().UTC().Year()

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", v); err != nil {
		return "", fmt.Errorf("notify: render %s: %w", page, err)
	}
	return buf.String(), nil
}

// Welcome 渲染欢迎邮件
func (r *Renderer) Welcome(p Welcome) (string, error) {
	return r.render(pageWelcome, view{FirstName: p.FirstName, LastName: p.LastName})
}

// PasswordReset 渲染重置链接邮件
func (r *Renderer) PasswordReset(p PasswordReset) (string, error) {
	return r.render(pagePasswordReset, view{
		FirstName:       p.FirstName,
		Link:            p.Link,
		ExpirationHours: p.ExpirationHours,
	})
}

// PasswordChanged 渲染改密通知
func (r *Renderer) PasswordChanged(p SecurityNotice) (string, error) {
	return r.render(pagePasswordChanged, r.noticeView("Change Details:", p))
}

// PasswordResetSucceeded 渲染重置成功通知
func (r *Renderer) PasswordResetSucceeded(p SecurityNotice) (string, error) {
	return r.render(pagePasswordResetSucceeded, r.noticeView("Reset Details:", p))
}

func (r *Renderer) noticeView(title string, p SecurityNotice) view {
	at := p.OccurredAt
	if at.IsZero() {
		at = r.now()
	}
	return view{
		FirstName:    p.FirstName,
		DetailsTitle: title,
		Time:         at.UTC().Format(time.DateTime),
		IPAddress:    p.IPAddress,
		UserAgent:    p.UserAgent,
	}
}
