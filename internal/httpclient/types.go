package httpclient

import "fmt"

// FileContent is the decoded body of a contents GET.
type FileContent struct {
	Path    string
	SHA     string
	Content []byte
}

// PutRequest describes a contents PUT.
type PutRequest struct {
	Path    string
	Message string
	Content []byte
	// SHA is the blob sha being replaced. Empty creates the file.
	SHA    string
	Branch string
}

// PutResult carries the identifiers GitHub reports after a PUT.
type PutResult struct {
	SHA       string
	CommitSHA string
}

// StatusError is returned for every non-2xx answer of the API.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	// Message is the "message" field of the API error body, if any.
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: unexpected status code %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: unexpected status code %d", e.Method, e.Path, e.StatusCode)
}

type contentsBody struct {
	Type     string `json:"type"`
	Encoding string `json:"encoding"`
	Path     string `json:"path"`
	SHA      string `json:"sha"`
	Content  string `json:"content"`
}

type putBody struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

type putResponseBody struct {
	Content struct {
		Path string `json:"path"`
		SHA  string `json:"sha"`
	} `json:"content"`
	Commit struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}

type errorBody struct {
	Message string `json:"message"`
}
