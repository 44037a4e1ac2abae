package render

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"

	"github.com/klauspost/compress/zlib"
)

const liveEditorPrefix = "https://mermaid.live/edit#pako:"

type liveState struct {
	Code    string          `json:"code"`
	Mermaid liveStateConfig `json:"mermaid"`
}

type liveStateConfig struct {
	Theme string `json:"theme"`
}

// EditURL links to the Mermaid live editor preloaded with code. The state is
// zlib-compressed at the best level and base64url-encoded without padding.
func EditURL(code string) (string, error) {
	state, err := json.Marshal(liveState{Code: code, Mermaid: liveStateConfig{Theme: "default"}})
	if err != nil {
		return "", fmt.Errorf("encode editor state: %w", err)
	}
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return "", fmt.Errorf("zlib writer: %w", err)
	}
	if _, err := zw.Write(state); err != nil {
		return "", fmt.Errorf("compress editor state: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("compress editor state: %w", err)
	}
	return liveEditorPrefix + base64.RawURLEncoding.EncodeToString(buf.Bytes()), nil
}

var page = template.Must(template.New("mindmap").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>{{.Title}}</title>
  <link href="https://cdn.jsdelivr.net/npm/tailwindcss@2.2.19/dist/tailwind.min.css" rel="stylesheet">
  <script src="https://cdn.jsdelivr.net/npm/mermaid@11.4.0/dist/mermaid.min.js"></script>
  <style>
    body {
      margin: 0;
      padding: 0;
    }
    #mermaid {
      width: 100%;
      height: calc(100vh - 64px);
      overflow: auto;
    }
  </style>
</head>
<body class="bg-gray-100">
  <div class="flex items-center justify-between p-4 bg-white shadow">
    <h1 class="text-xl font-bold">{{.Title}}</h1>
    <a href="{{.EditURL}}" target="_blank" id="editButton" class="px-4 py-2 bg-blue-500 text-white rounded hover:bg-blue-600">Edit in Mermaid Live Editor</a>
  </div>
  <div id="mermaid" class="p-4">
    <pre class="mermaid">
{{.Code}}
    </pre>
  </div>
  <script>
    mermaid.initialize({
      startOnLoad: true,
      securityLevel: 'loose',
      theme: 'default',
      mindmap: {
        useMaxWidth: true
      },
      themeConfig: {
        controlBar: true
      }
    });
  </script>
</body>
</html>
`))

// HTML wraps Mermaid code in a standalone page that renders it in the
// browser and links to the live editor.
func HTML(code, title string) (string, error) {
	code = strings.TrimSpace(code)
	if strings.HasPrefix(code, "```") && strings.HasSuffix(code, "```") && len(code) >= 6 {
		code = strings.TrimSpace(code[3 : len(code)-3])
	}
	if title == "" {
		title = "Mermaid Mindmap"
	}
	editURL, err := EditURL(code)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	err = page.Execute(&buf, struct {
		Title   string
		Code    string
		EditURL template.URL
	}{Title: title, Code: code, EditURL: template.URL(editURL)})
	if err != nil {
		return "", fmt.Errorf("render page: %w", err)
	}
	return buf.String(), nil
}
