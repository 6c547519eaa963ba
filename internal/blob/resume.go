// Package blob deletes resume files from the external blob store.
//
// Callers never see blob errors: Client.Delete logs every failure and reports
// it as false, so a failed blob delete can never abort a database cascade.
package blob

import (
	"net/url"
	"path"
	"strings"
)

// resumeMarker is the path segment under which resumes are uploaded.
const resumeMarker = "/resumes/"

// ResumeRef identifies a resume file in the blob store.
type ResumeRef struct {
	ID  string // path after /resumes/ without the extension
	Ext string // extension including the dot, may be empty
}

// PublicID is the extension-less key used by stores that address assets by
// public id (Cloudinary).
func (r ResumeRef) PublicID() string { return "resumes/" + r.ID }

// ObjectKey is the key used by object stores that keep the file name as
// uploaded (GCS, S3).
func (r ResumeRef) ObjectKey() string { return "resumes/" + r.ID + r.Ext }

// ParseResumeURL extracts the resume identifier from a stored resume URL.
// It reports false when the URL does not contain a non-empty identifier under
// /resumes/; no remote call should be made in that case.
func ParseResumeURL(raw string) (ResumeRef, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ResumeRef{}, false
	}

	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	} else if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}

	i := strings.Index(p, resumeMarker)
	if i < 0 {
		return ResumeRef{}, false
	}
	rest := strings.Trim(p[i+len(resumeMarker):], "/")
	if rest == "" {
		return ResumeRef{}, false
	}

	ext := path.Ext(rest)
	id := strings.TrimSuffix(rest, ext)
	if id == "" || strings.HasSuffix(id, "/") {
		return ResumeRef{}, false
	}
	return ResumeRef{ID: id, Ext: ext}, true
}
