// Package templates locates deployment templates in a three-level
// override hierarchy.
//
// Templates live in a store laid out by team and language:
//
//	_default/server.yaml.tmpl        global default
//	ml/_default/server.yaml.tmpl     team default
//	ml/python/dockerfile.tmpl        team + language
//
// Resolution scans the levels from least to most specific and keeps the
// last one that has the file, so a team can override a single template
// and inherit everything else.
package templates
