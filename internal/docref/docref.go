// Package docref parses document reference strings into storage locators.
package docref

import (
	"fmt"
	"path"
	"strings"
)

// Kind classifies the media type inferred from a reference.
type Kind string

const (
	KindPDF         Kind = "pdf"
	KindImage       Kind = "image"
	KindUnsupported Kind = "unsupported"
)

var imageExtensions = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
}

// Ref locates one document inside a bucket. Immutable once parsed.
type Ref struct {
	Raw    string
	Bucket string
	Key    string
	Kind   Kind
}

// Normalize decodes the single placeholder space-encoding used by reference
// strings. Deduplication matches on exact equality of the normalized string;
// no other rewriting happens.
func Normalize(link string) string {
	return strings.ReplaceAll(link, "+", " ")
}

// Parse turns a normalized reference string into a Ref. Accepted forms are
// "https://<bucket>.s3.amazonaws.com/<key>" and "<scheme>://<bucket>/<key>".
func Parse(link string) (Ref, error) {
	parts := strings.Split(link, "/")
	if len(parts) < 4 || parts[2] == "" || parts[3] == "" {
		return Ref{}, fmt.Errorf("docref: malformed reference %q", link)
	}

	bucket := parts[2]
	if i := strings.Index(bucket, ".s3.amazonaws.com"); i >= 0 {
		bucket = bucket[:i]
	}
	key := strings.Join(parts[3:], "/")

	return Ref{
		Raw:    link,
		Bucket: bucket,
		Key:    key,
		Kind:   kindOf(key),
	}, nil
}

func kindOf(key string) Kind {
	ext := strings.ToLower(path.Ext(key))
	switch {
	case ext == ".pdf":
		return KindPDF
	case imageExtensions[ext]:
		return KindImage
	default:
		return KindUnsupported
	}
}

// Base returns the file name portion of the key without its extension.
func (r Ref) Base() string {
	name := path.Base(r.Key)
	return strings.TrimSuffix(name, path.Ext(name))
}
