// annotations.go defines the @oxy: comment annotations understood by the WGSL
// pre-processor. An annotation is a single-line WGSL comment of the form
//
//	//@oxy:<type> <args...>
//
// Lines that do not start with the marker are passed through untouched.
package shader

import (
	"errors"
	"fmt"
	"strings"
)

// annotationPrefix is the marker that identifies an annotation inside a WGSL comment line.
const annotationPrefix = "@oxy:"

// ErrAnnotation is returned for malformed annotation lines.
var ErrAnnotation = errors.New("malformed shader annotation")

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// AnnotationTypeInclude injects a registered WGSL source at the annotation site.
	// Each source is injected at most once per processed shader.
	//
	// Syntax: //@oxy:include <name>
	//
	// Example: //@oxy:include camera
	AnnotationTypeInclude AnnotationType = "include"
)

// Annotation is a single parsed @oxy: annotation.
type Annotation struct {
	// Type identifies which annotation was parsed.
	Type AnnotationType

	// Args holds the whitespace-separated annotation arguments.
	Args []string

	// Line is the 1-based line number of the annotation in its source.
	Line int
}

// annotationArity is the number of arguments each annotation type requires.
var annotationArity = map[AnnotationType]int{
	AnnotationTypeInclude: 1,
}

// parseAnnotation parses line as an annotation. It returns nil without error when
// the line carries no annotation.
//
// Parameters:
//   - line: a single WGSL source line
//   - lineNo: the 1-based line number used for error reporting
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: ErrAnnotation for an unknown type or a wrong argument count
func parseAnnotation(line string, lineNo int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	body, ok := strings.CutPrefix(trimmed, "//")
	if !ok {
		return nil, nil
	}
	body, ok = strings.CutPrefix(strings.TrimSpace(body), annotationPrefix)
	if !ok {
		return nil, nil
	}

	fields := strings.Fields(body)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: line %d: missing annotation type", ErrAnnotation, lineNo)
	}
	a := &Annotation{
		Type: AnnotationType(fields[0]),
		Args: fields[1:],
		Line: lineNo,
	}
	arity, known := annotationArity[a.Type]
	if !known {
		return nil, fmt.Errorf("%w: line %d: unknown annotation %q", ErrAnnotation, lineNo, a.Type)
	}
	if len(a.Args) != arity {
		return nil, fmt.Errorf("%w: line %d: @oxy:%s takes %d argument(s), got %d",
			ErrAnnotation, lineNo, a.Type, arity, len(a.Args))
	}
	return a, nil
}
