package httpmsg

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
)

const (
	ContentTypeHTML = "text/html; charset=utf-8"
	ContentTypeJSON = "application/json; charset=utf-8"
)

// Response is an outbound message: a redirect, an HTML document, an
// auto-submitting HTML form, or a JSON body.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
	Location    string // non-empty for redirects
	header      http.Header
	cookies     []*http.Cookie
}

var formPostTemplate = template.Must(template.New("formPost").Parse(
	`<html>
<head><title>Submit This Form</title></head>
<body onload="javascript:document.forms[0].submit()">
<form method="post" action="{{.Action}}">
{{- range $name, $value := .Fields}}
<input type="hidden" name="{{$name}}" value="{{$value}}"/>
{{- end}}
<noscript><input type="submit" value="Continue"/></noscript>
</form>
</body>
</html>`))

// NewRedirectResponse issues a 302 to the target.
func NewRedirectResponse(target *url.URL) *Response {
	return &Response{
		StatusCode: http.StatusFound,
		Location:   target.String(),
		header:     http.Header{},
	}
}

// NewHTMLResponse returns an HTML document.
func NewHTMLResponse(status int, body string) *Response {
	return &Response{
		StatusCode:  status,
		ContentType: ContentTypeHTML,
		Body:        []byte(body),
		header:      http.Header{},
	}
}

// NewJSONResponse marshals v as the response body.
func NewJSONResponse(status int, v any) (*Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshaling response body: %w", err)
	}
	return &Response{
		StatusCode:  status,
		ContentType: ContentTypeJSON,
		Body:        body,
		header:      http.Header{},
	}, nil
}

// NewFormPostResponse returns a self-submitting HTML form posting the fields
// to the action URI.
func NewFormPostResponse(action *url.URL, fields map[string]string) (*Response, error) {
	var buf bytes.Buffer
	err := formPostTemplate.Execute(&buf, struct {
		Action string
		Fields map[string]string
	}{Action: action.String(), Fields: fields})
	if err != nil {
		return nil, fmt.Errorf("rendering form post: %w", err)
	}
	return &Response{
		StatusCode:  http.StatusOK,
		ContentType: ContentTypeHTML,
		Body:        buf.Bytes(),
		header:      http.Header{},
	}, nil
}

// SetHeader sets a response header.
func (r *Response) SetHeader(name, value string) {
	if r.header == nil {
		r.header = http.Header{}
	}
	r.header.Set(name, value)
}

// AddCookie attaches a cookie to the response.
func (r *Response) AddCookie(c *http.Cookie) {
	r.cookies = append(r.cookies, c)
}

// Write renders the response into the container's writer.
func (r *Response) Write(w http.ResponseWriter) error {
	for name, values := range r.header {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	for _, c := range r.cookies {
		http.SetCookie(w, c)
	}
	if r.Location != "" {
		w.Header().Set("Location", r.Location)
		w.WriteHeader(r.StatusCode)
		return nil
	}
	if r.ContentType != "" {
		w.Header().Set("Content-Type", r.ContentType)
	}
	w.WriteHeader(r.StatusCode)
	_, err := w.Write(r.Body)
	return err
}
