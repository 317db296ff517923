package httpclient

import (
	"bytes"
	"encoding/json"
	"mime"
	"net/url"
	"strings"

	"github.com/clbanning/mxj/v2"
)

// Decode turns a response body into a value according to its content type:
// JSON into maps and slices, urlencoded forms into url.Values, XML into a
// map, and anything else into a string. An empty body decodes to nil.
func Decode(contentType string, data []byte) (any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}

	switch {
	case mediaType == ContentTypeJSON || strings.HasSuffix(mediaType, "+json"):
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	case mediaType == ContentTypeForm:
		return url.ParseQuery(string(data))
	case mediaType == ContentTypeXML || mediaType == "text/xml" || strings.HasSuffix(mediaType, "+xml"):
		m, err := mxj.NewMapXml(data)
		if err != nil {
			return nil, err
		}
		return map[string]any(m), nil
	default:
		return string(data), nil
	}
}
