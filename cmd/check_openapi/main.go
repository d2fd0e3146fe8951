package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

type openAPIDoc struct {
	Paths      map[string]map[string]any `yaml:"paths"`
	Components struct {
		Schemas   map[string]schema `yaml:"schemas"`
		Responses map[string]any    `yaml:"responses"`
	} `yaml:"components"`
}

type schema struct {
	Type       string            `yaml:"type"`
	Ref        string            `yaml:"$ref"`
	Properties map[string]schema `yaml:"properties"`
	Required   []string          `yaml:"required"`
	Items      *schema           `yaml:"items"`
}

type route struct {
	method string
	path   string
}

// servedRoutes mirrors the research server mux.
var servedRoutes = []route{
	{"get", "/healthz"},
	{"post", "/api/signup"},
	{"post", "/api/login"},
	{"post", "/api/guest-init"},
	{"post", "/api/logout"},
	{"get", "/api/me"},
	{"post", "/api/research"},
	{"get", "/api/research/{id}"},
	{"post", "/api/refine"},
	{"post", "/api/create-post"},
	{"get", "/api/history"},
}

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <openapi.yaml>\n", os.Args[0])
		os.Exit(2)
	}
	if err := run(os.Args[1]); err != nil {
		exitErr(err)
	}
	fmt.Println("OpenAPI consistency check passed.")
}

func run(path string) error {
	doc, err := loadDoc(path)
	if err != nil {
		return err
	}
	errSchema, err := getSchema(doc, "ErrorResponse")
	if err != nil {
		return err
	}
	if err := validateErrorResponse(errSchema); err != nil {
		return err
	}
	if err := validateRoutes(doc); err != nil {
		return err
	}
	for _, name := range sortedKeys(doc.Components.Schemas) {
		if err := validateRequired(name, doc.Components.Schemas[name]); err != nil {
			return err
		}
	}
	var refs []string
	collectRefs(doc.Paths, &refs)
	for _, s := range doc.Components.Schemas {
		collectRefs(s, &refs)
	}
	return validateRefs(doc, refs)
}

func loadDoc(path string) (openAPIDoc, error) {
	var doc openAPIDoc
	raw, err := os.ReadFile(path)
	if err != nil {
		return doc, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return doc, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

func getSchema(doc openAPIDoc, name string) (schema, error) {
	if doc.Components.Schemas == nil {
		return schema{}, errors.New("components.schemas missing")
	}
	s, ok := doc.Components.Schemas[name]
	if !ok {
		return schema{}, fmt.Errorf("schema %q missing", name)
	}
	return s, nil
}

// validateErrorResponse pins the {"error": "..."} body every handler writes.
func validateErrorResponse(s schema) error {
	if s.Type != "object" {
		return errors.New("ErrorResponse must be object")
	}
	if !makeSet(s.Required)["error"] {
		return errors.New(`ErrorResponse.required must include "error"`)
	}
	errorProp, ok := s.Properties["error"]
	if !ok || errorProp.Type != "string" {
		return errors.New("ErrorResponse.error must be string")
	}
	return nil
}

func validateRoutes(doc openAPIDoc) error {
	served := make(map[string]bool, len(servedRoutes))
	for _, r := range servedRoutes {
		served[r.path] = true
		ops, ok := doc.Paths[r.path]
		if !ok {
			return fmt.Errorf("path %s is served but not documented", r.path)
		}
		if _, ok := ops[r.method]; !ok {
			return fmt.Errorf("%s %s is served but not documented", strings.ToUpper(r.method), r.path)
		}
	}
	for _, p := range sortedKeys(doc.Paths) {
		if !served[p] {
			return fmt.Errorf("path %s is documented but not served", p)
		}
	}
	return nil
}

func validateRequired(name string, s schema) error {
	for _, field := range s.Required {
		if _, ok := s.Properties[field]; !ok {
			return fmt.Errorf("%s.required lists %q without a property", name, field)
		}
	}
	return nil
}

func collectRefs(v any, out *[]string) {
	switch t := v.(type) {
	case map[string]any:
		for k, inner := range t {
			if k == "$ref" {
				if ref, ok := inner.(string); ok {
					*out = append(*out, ref)
				}
				continue
			}
			collectRefs(inner, out)
		}
	case map[string]map[string]any:
		for _, inner := range t {
			collectRefs(inner, out)
		}
	case []any:
		for _, inner := range t {
			collectRefs(inner, out)
		}
	case schema:
		if t.Ref != "" {
			*out = append(*out, t.Ref)
		}
		if t.Items != nil {
			collectRefs(*t.Items, out)
		}
		for _, p := range t.Properties {
			collectRefs(p, out)
		}
	}
}

func validateRefs(doc openAPIDoc, refs []string) error {
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		switch {
		case strings.HasPrefix(ref, "#/components/schemas/"):
			if _, ok := doc.Components.Schemas[strings.TrimPrefix(ref, "#/components/schemas/")]; !ok {
				return fmt.Errorf("dangling reference %s", ref)
			}
		case strings.HasPrefix(ref, "#/components/responses/"):
			if _, ok := doc.Components.Responses[strings.TrimPrefix(ref, "#/components/responses/")]; !ok {
				return fmt.Errorf("dangling reference %s", ref)
			}
		default:
			return fmt.Errorf("unsupported reference %s", ref)
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func makeSet(items []string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out[item] = true
	}
	return out
}

func exitErr(err error) {
	fmt.Fprintln(os.Stderr, err.Error())
	os.Exit(1)
}
