// Package router classifies intercepted requests into the class that picks
// their cache strategy.
package router

import (
	"net/http"
	"strings"
)

// Class is the request class a strategy is selected by.
type Class int

const (
	// ClassPassThrough marks requests that must never be intercepted or
	// cached, e.g. browser-internal schemes.
	ClassPassThrough Class = iota
	// ClassAPI marks backend API requests.
	ClassAPI
	// ClassNavigation marks full-page navigation requests.
	ClassNavigation
	// ClassStatic marks everything else (assets, manifests, media).
	ClassStatic
)

func (c Class) String() string {
	switch c {
	case ClassAPI:
		return "api"
	case ClassNavigation:
		return "navigation"
	case ClassStatic:
		return "static"
	default:
		return "passthrough"
	}
}

// Router classifies requests. Classification is stable and side-effect free.
type Router struct {
	apiPrefix string
}

// New creates a Router that treats paths under apiPrefix as API requests.
func New(apiPrefix string) *Router {
	if apiPrefix == "" {
		apiPrefix = "/api/"
	}
	return &Router{apiPrefix: apiPrefix}
}

// Classify returns the class for a request.
func (r *Router) Classify(req *http.Request) Class {
	// Non-fetchable browser-internal schemes pass through untouched.
	if s := req.URL.Scheme; s != "" && s != "http" && s != "https" {
		return ClassPassThrough
	}

	if strings.HasPrefix(req.URL.Path, r.apiPrefix) {
		return ClassAPI
	}

	if isNavigation(req) {
		return ClassNavigation
	}

	return ClassStatic
}

// isNavigation reports whether the request looks like a full-page browser
// navigation.
func isNavigation(req *http.Request) bool {
	if req.Header.Get("Sec-Fetch-Mode") == "navigate" {
		return true
	}
	if req.Method != http.MethodGet {
		return false
	}
	return strings.Contains(req.Header.Get("Accept"), "text/html")
}
