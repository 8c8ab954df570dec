// Package templates holds the templ components served by the web package.
// The *_templ.go files are generated from the .templ sources with
// `templ generate`.
package templates
