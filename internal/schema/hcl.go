package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsimple"
)

// hclContentType is the content_type block in a schema file.
type hclContentType struct {
	UID          string `hcl:"uid,label"`
	DisplayName  string `hcl:"display_name,optional"`
	SingularName string `hcl:"singular_name,optional"`
	PluralName   string `hcl:"plural_name,optional"`
	Kind         string `hcl:"kind,optional"`
}

// hclFile wraps the top-level file so one file may declare several types.
type hclFile struct {
	ContentTypes []hclContentType `hcl:"content_type,block"`
}

// ParseHCL parses content-type declarations. The format is:
//
//	content_type "api::article.article" {
//	  display_name  = "Article"
//	  singular_name = "article"
//	  plural_name   = "articles"
//	  kind          = "collectionType"
//	}
func ParseHCL(src []byte, filename string) ([]ContentType, error) {
	var file hclFile
	if err := hclsimple.Decode(filename, src, nil, &file); err != nil {
		if diags, ok := err.(hcl.Diagnostics); ok {
			for _, diag := range diags {
				if diag.Severity == hcl.DiagError {
					return nil, fmt.Errorf("HCL parse error at %s: %s", diag.Subject, diag.Detail)
				}
			}
		}
		return nil, fmt.Errorf("parsing HCL: %w", err)
	}

	types := make([]ContentType, 0, len(file.ContentTypes))
	for _, block := range file.ContentTypes {
		if err := ValidateUID(block.UID); err != nil {
			return nil, fmt.Errorf("%s: %w", filename, err)
		}
		kind := block.Kind
		if kind == "" {
			kind = "collectionType"
		}
		if kind != "collectionType" && kind != "singleType" {
			return nil, fmt.Errorf("%s: content type %q: unknown kind %q", filename, block.UID, kind)
		}
		types = append(types, ContentType{
			UID:          block.UID,
			DisplayName:  block.DisplayName,
			SingularName: block.SingularName,
			PluralName:   block.PluralName,
			Kind:         kind,
		})
	}
	return types, nil
}

// LoadDir parses every *.hcl file in dir. A UID declared twice is an error.
func LoadDir(dir string) ([]ContentType, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading schema directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".hcl") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	seen := make(map[string]string)
	var all []ContentType
	for _, name := range files {
		path := filepath.Join(dir, name)
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading schema %s: %w", name, err)
		}
		types, err := ParseHCL(src, name)
		if err != nil {
			return nil, err
		}
		for _, ct := range types {
			if prev, dup := seen[ct.UID]; dup {
				return nil, fmt.Errorf("content type %q declared in both %s and %s", ct.UID, prev, name)
			}
			seen[ct.UID] = name
			all = append(all, ct)
		}
	}
	return all, nil
}
