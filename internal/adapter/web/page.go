package web

import (
	"errors"
	"html/template"
	"net/http"

	"llm-chat-playground/internal/config"
	"llm-chat-playground/internal/domain"
	"llm-chat-playground/internal/usecase/chat"
)

const userColor = "#f1c40f"

type bubble struct {
	IsUser  bool
	Name    string
	Emoji   string
	Color   template.CSS
	Content string
	Time    string
}

type pageData struct {
	Vendor    config.VendorConfig
	Connected bool
	InitError string
	Error     string
	Draft     string
	Bubbles   []bubble
}

var pageTmpl = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Vendor.DisplayName}} API test</title>
<style>
	body { font-family: system-ui, sans-serif; max-width: 960px; margin: 0 auto; padding: 1rem 2rem; line-height: 1.5; }
	.status { padding: .75rem 1rem; border-radius: 8px; margin: 1rem 0; }
	.ok { background: #e8f8ef; color: #1e7e34; }
	.err { background: #fdecea; color: #a71d2a; }
	.row { margin: 10px; }
	.row.user { text-align: right; }
	.row.assistant { text-align: left; }
	.bubble { display: inline-block; padding: 12px 20px; border-radius: 15px; max-width: 80%; box-shadow: 0 2px 4px rgba(0,0,0,.1); text-align: left; white-space: pre-wrap; }
	.time { font-size: .8em; color: #666; margin-top: 5px; }
	form.send { display: flex; gap: .5rem; margin-top: 1rem; }
	form.send input[type=text] { flex: 1; height: 50px; font-size: 16px; border-radius: 10px; padding: 0 15px; border: 1px solid #ccc; }
	button { height: 45px; border-radius: 10px; font-weight: 500; padding: 0 1.25rem; border: 1px solid #ccc; background: #fff; cursor: pointer; }
	button:hover { box-shadow: 0 5px 15px rgba(0,0,0,.1); }
	details { margin-top: 1rem; }
</style>
</head>
<body>
<h1>{{.Vendor.Emoji}} {{.Vendor.DisplayName}} API test</h1>
{{with .Vendor.Tagline}}<h4>{{.}}</h4>{{end}}
<hr>
{{if .Connected}}
<div class="status ok">✅ {{.Vendor.DisplayName}} API connected</div>
{{else}}
<div class="status err">❌ {{.Vendor.DisplayName}} API connection failed<br>{{.InitError}}</div>
<p>Check the API key ({{.Vendor.KeyEnv}}) and restart.</p>
{{end}}
{{with .Error}}<div class="status err" role="alert">{{.}}</div>{{end}}

<h3>💭 Conversation</h3>
<div id="transcript">
{{range .Bubbles}}
<div class="row {{if .IsUser}}user{{else}}assistant{{end}}">
	<div class="bubble" style="background-color: {{.Color}}20">
		<strong>{{.Name}}</strong> {{.Emoji}}<br>{{.Content}}
		<div class="time">{{.Time}}</div>
	</div>
</div>
{{end}}
</div>

{{if .Connected}}
<form class="send" method="post" action="/submit">
	<input type="text" name="message" value="{{.Draft}}" placeholder="{{.Vendor.Placeholder}}" autofocus>
	<button type="submit">💬 Send</button>
</form>
<form method="post" action="/reset" style="margin-top:.5rem">
	<button type="submit">🗑 Clear</button>
</form>
{{with .Vendor.Tips}}
<details>
	<summary>ℹ️ Help</summary>
	<ol>{{range .}}<li>{{.}}</li>{{end}}</ol>
</details>
{{end}}
{{end}}
</body>
</html>
`))

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sid := s.sessionID(w, r)
	s.render(w, http.StatusOK, s.page(sid, "", ""))
}

func (s *Server) handleSubmitForm(w http.ResponseWriter, r *http.Request) {
	sid := s.sessionID(w, r)
	r.Body = http.MaxBytesReader(w, r.Body, maxMessageBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	text := r.PostFormValue("message")

	_, err := s.chat.Submit(r.Context(), sid, text)
	if err == nil || errors.Is(err, chat.ErrEmptyMessage) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	msg := "Response generation failed: " + domain.Diagnostic(err)
	draft := ""
	if errors.Is(err, chat.ErrExchangeInProgress) {
		msg = "Still waiting for the previous answer."
		draft = text
	}
	s.render(w, exchangeStatus(err), s.page(sid, msg, draft))
}

func (s *Server) handleResetForm(w http.ResponseWriter, r *http.Request) {
	sid := s.sessionID(w, r)
	s.chat.Reset(sid)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) page(sid, errMsg, draft string) pageData {
	vendor := s.chat.Vendor()
	data := pageData{
		Vendor:    vendor,
		Connected: s.chat.Status() == nil,
		InitError: domain.Diagnostic(s.chat.Status()),
		Error:     errMsg,
		Draft:     draft,
	}
	for _, t := range s.chat.Turns(sid) {
		b := bubble{
			IsUser:  t.Role == domain.RoleUser,
			Content: t.Content,
			Time:    t.Clock(),
		}
		if b.IsUser {
			b.Name, b.Emoji, b.Color = "You", "👤", userColor
		} else {
			b.Name, b.Emoji, b.Color = vendor.DisplayName, vendor.Emoji, template.CSS(vendor.Color)
		}
		data.Bubbles = append(data.Bubbles, b)
	}
	return data
}

func (s *Server) render(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTmpl.Execute(w, data); err != nil {
		s.log.Error("failed to render page", "error", err)
	}
}
