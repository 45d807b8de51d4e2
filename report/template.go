package report

import (
	"encoding/base64"
	"html/template"

	"github.com/use-agent/pagedigest/models"
)

// reportTmpl lays out one A4 section per record. The @page rule and the
// per-entry page break drive pagination in the print-to-PDF step; the
// compiler itself stays a pure HTML producer.
var reportTmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"inc":      func(i int) int { return i + 1 },
	"thumbSrc": thumbSrc,
	"failed":   func(r models.PageRecord) bool { return r.Status == models.StatusFailed },
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  @page { size: {{.PaperSize}}; margin: 25mm; }
  body { font-family: Helvetica, Arial, sans-serif; color: #000; margin: 0; }
  .entry { page-break-after: always; }
  .entry:last-child { page-break-after: auto; }
  h1 { font-size: 12pt; margin: 0 0 12pt 0; }
  h1 a { color: #000; text-decoration: none; }
  p { font-size: 10pt; margin: 0 0 8pt 0; }
  .url a { color: #0000cc; word-break: break-all; }
  .notice { color: #cc0000; }
  .thumb { max-width: 100%; max-height: 150mm; margin-top: 8pt; }
  .footer { font-size: 9pt; color: #444; margin-top: 16pt; }
</style>
</head>
<body>
{{- range $i, $r := .Records}}
<section class="entry">
  <h1>{{inc $i}}. {{if $r.Title}}<a href="{{$r.SourceURL}}">{{$r.Title}}</a>{{else}}<a href="{{$r.SourceURL}}">(no title)</a>{{end}}</h1>
  <p class="url">URL: <a href="{{$r.SourceURL}}">{{$r.SourceURL}}</a></p>
  <p>Accessed: {{$r.CapturedAt.Format "2006-01-02 15:04:05"}}</p>
  {{- if $r.Price}}
  <p>Price: {{$r.Price}}</p>
  {{- end}}
  {{- if $r.Description}}
  <p>{{$r.Description}}</p>
  {{- end}}
  {{- if failed $r}}
  <p class="notice">Page could not be loaded{{if $r.FailureReason}}: {{$r.FailureReason}}{{end}}</p>
  {{- else if $r.Thumbnail}}
  <img class="thumb" src="{{thumbSrc $r.Thumbnail}}" width="{{$r.Thumbnail.Width}}" height="{{$r.Thumbnail.Height}}">
  {{- else}}
  <p class="notice">Thumbnail could not be loaded.</p>
  {{- end}}
  {{- if $.Footer}}
  <p class="footer">Page {{inc $i}} &mdash; {{$.Footer}}</p>
  {{- end}}
</section>
{{- end}}
</body>
</html>
`))

// thumbSrc embeds the normalized JPEG as a data URI. The explicit
// template.URL type is required because html/template rejects data:
// URLs from untrusted strings.
func thumbSrc(img *models.NormalizedImage) template.URL {
	return template.URL("data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(img.Data))
}

// templateData is the root object handed to reportTmpl.
type templateData struct {
	Records   []models.PageRecord
	PaperSize string
	Footer    string
}
