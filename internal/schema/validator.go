// Package schema validates TEIF documents against the published XML
// Schema. Go has no XSD processor in the standard library and the
// mainstream bindings are cgo wrappers over libxml2, so this package
// interprets the schema subset the TEIF XSDs use directly: sequences,
// occurrence bounds, required attributes, pattern facets, and xs:any
// wildcards. Schemas are parsed with etree, which performs no DTD or
// external-entity processing, so hostile schema or instance content can
// never trigger a fetch.
package schema

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/tnvoice/elfatoora/internal/model"
)

// Variant selects which schema flavor a document is checked against.
type Variant int

const (
	// Unsigned is the schema without the trailing Signature element.
	Unsigned Variant = iota
	// Signed is the schema requiring the Signature element.
	Signed
)

// Violation is one schema rule failure, with enough location context to
// point at the offending element.
type Violation struct {
	Location string `json:"location"`
	Rule     string `json:"rule"`
	Message  string `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s (%s)", v.Location, v.Message, v.Rule)
}

// Rule identifiers carried on violations.
const (
	RuleMissingElement    = "missing-element"
	RuleUnexpectedElement = "unexpected-element"
	RuleTooManyElements   = "too-many-elements"
	RuleMissingAttribute  = "missing-attribute"
	RulePatternMismatch   = "pattern-mismatch"
	RuleWrongRoot         = "wrong-root"
)

// element is a compiled schema element declaration.
type element struct {
	name          string
	children      []particle
	anyChildren   bool
	requiredAttrs []string
	pattern       *regexp.Regexp
}

// particle is one entry of a sequence content model.
type particle struct {
	decl *element
	min  int
	max  int // -1 for unbounded
}

// Validator checks documents against one compiled schema variant.
// A Validator is immutable after compilation and safe for concurrent use.
type Validator struct {
	root *element
}

// Compile parses and compiles an XSD from raw bytes. A failure here is
// a configuration error, fatal to the caller; it is never reported as a
// per-document violation.
func Compile(xsd []byte) (*Validator, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xsd); err != nil {
		return nil, fmt.Errorf("schema: unparseable XSD: %w", err)
	}
	schemaEl := doc.Root()
	if schemaEl == nil || localName(schemaEl.Tag) != "schema" {
		return nil, fmt.Errorf("schema: document root is not xs:schema")
	}

	c := &compiler{namedTypes: map[string]*etree.Element{}}
	var rootDecl *etree.Element
	for _, child := range schemaEl.ChildElements() {
		switch localName(child.Tag) {
		case "complexType":
			if name := child.SelectAttrValue("name", ""); name != "" {
				c.namedTypes[name] = child
			}
		case "element":
			if rootDecl != nil {
				return nil, fmt.Errorf("schema: multiple top-level element declarations")
			}
			rootDecl = child
		}
	}
	if rootDecl == nil {
		return nil, fmt.Errorf("schema: no top-level element declaration")
	}

	root, err := c.compileElement(rootDecl)
	if err != nil {
		return nil, err
	}
	return &Validator{root: root}, nil
}

type compiler struct {
	namedTypes map[string]*etree.Element
}

func (c *compiler) compileElement(decl *etree.Element) (*element, error) {
	name := decl.SelectAttrValue("name", "")
	if name == "" {
		return nil, fmt.Errorf("schema: element declaration without name")
	}
	el := &element{name: name}

	typeDef := findChild(decl, "complexType")
	if typeDef == nil {
		if typeName := decl.SelectAttrValue("type", ""); typeName != "" && !strings.HasPrefix(typeName, "xs:") {
			named, ok := c.namedTypes[typeName]
			if !ok {
				return nil, fmt.Errorf("schema: element %s references unknown type %q", name, typeName)
			}
			typeDef = named
		}
	}
	if typeDef != nil {
		if err := c.compileType(el, typeDef); err != nil {
			return nil, fmt.Errorf("schema: element %s: %w", name, err)
		}
	}

	// Inline simple type with a pattern facet.
	if st := findChild(decl, "simpleType"); st != nil {
		if err := compilePattern(el, st); err != nil {
			return nil, fmt.Errorf("schema: element %s: %w", name, err)
		}
	}
	return el, nil
}

func (c *compiler) compileType(el *element, typeDef *etree.Element) error {
	for _, child := range typeDef.ChildElements() {
		switch localName(child.Tag) {
		case "sequence":
			if err := c.compileSequence(el, child); err != nil {
				return err
			}
		case "attribute":
			compileAttribute(el, child)
		case "simpleContent":
			// Leaf with attributes: walk the extension/restriction.
			for _, inner := range child.ChildElements() {
				for _, part := range inner.ChildElements() {
					switch localName(part.Tag) {
					case "attribute":
						compileAttribute(el, part)
					case "pattern":
						if err := setPattern(el, part.SelectAttrValue("value", "")); err != nil {
							return err
						}
					}
				}
			}
		}
	}
	return nil
}

func (c *compiler) compileSequence(el *element, seq *etree.Element) error {
	for _, child := range seq.ChildElements() {
		switch localName(child.Tag) {
		case "element":
			decl, err := c.compileElement(child)
			if err != nil {
				return err
			}
			el.children = append(el.children, particle{
				decl: decl,
				min:  occursAttr(child, "minOccurs", 1),
				max:  occursAttr(child, "maxOccurs", 1),
			})
		case "any":
			el.anyChildren = true
		}
	}
	return nil
}

func compileAttribute(el *element, attr *etree.Element) {
	if attr.SelectAttrValue("use", "") == "required" {
		el.requiredAttrs = append(el.requiredAttrs, attr.SelectAttrValue("name", ""))
	}
}

func compilePattern(el *element, simpleType *etree.Element) error {
	if restriction := findChild(simpleType, "restriction"); restriction != nil {
		if pat := findChild(restriction, "pattern"); pat != nil {
			return setPattern(el, pat.SelectAttrValue("value", ""))
		}
	}
	return nil
}

func setPattern(el *element, value string) error {
	if value == "" {
		return nil
	}
	// XSD patterns are implicitly anchored.
	re, err := regexp.Compile("^(?:" + value + ")$")
	if err != nil {
		return fmt.Errorf("bad pattern %q: %w", value, err)
	}
	el.pattern = re
	return nil
}

func occursAttr(decl *etree.Element, name string, def int) int {
	v := decl.SelectAttrValue(name, "")
	switch v {
	case "":
		return def
	case "unbounded":
		return -1
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// Validate checks a parsed document against the schema. It never
// mutates or repairs the document, and it returns every violation found
// rather than stopping at the first.
func (v *Validator) Validate(data []byte) ([]Violation, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, model.NewDomainError(model.ErrCodeXMLParsing, "xml", "document is not well-formed XML", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, model.NewDomainError(model.ErrCodeInvalidXMLStructure, "xml", "document has no root element", nil)
	}

	var violations []Violation
	if localName(root.Tag) != v.root.name {
		violations = append(violations, Violation{
			Location: "/" + localName(root.Tag),
			Rule:     RuleWrongRoot,
			Message:  fmt.Sprintf("expected root element %s, found %s", v.root.name, localName(root.Tag)),
		})
		return violations, nil
	}
	validateElement(root, v.root, "/"+v.root.name, &violations)
	return violations, nil
}

func validateElement(el *etree.Element, decl *element, path string, violations *[]Violation) {
	for _, attr := range decl.requiredAttrs {
		if el.SelectAttr(attr) == nil {
			*violations = append(*violations, Violation{
				Location: path,
				Rule:     RuleMissingAttribute,
				Message:  fmt.Sprintf("required attribute %q is missing", attr),
			})
		}
	}

	if decl.pattern != nil {
		text := strings.TrimSpace(el.Text())
		if !decl.pattern.MatchString(text) {
			*violations = append(*violations, Violation{
				Location: path,
				Rule:     RulePatternMismatch,
				Message:  fmt.Sprintf("value %q does not match the required pattern", text),
			})
		}
	}

	if decl.anyChildren {
		return
	}
	if len(decl.children) == 0 {
		return
	}

	children := el.ChildElements()
	idx := 0
	for _, p := range decl.children {
		count := 0
		for idx < len(children) && localName(children[idx].Tag) == p.decl.name {
			childPath := fmt.Sprintf("%s/%s", path, p.decl.name)
			if count >= 1 {
				childPath = fmt.Sprintf("%s/%s[%d]", path, p.decl.name, count+1)
			}
			validateElement(children[idx], p.decl, childPath, violations)
			count++
			idx++
		}
		if count < p.min {
			*violations = append(*violations, Violation{
				Location: fmt.Sprintf("%s/%s", path, p.decl.name),
				Rule:     RuleMissingElement,
				Message:  fmt.Sprintf("element %s occurs %d time(s), at least %d required", p.decl.name, count, p.min),
			})
		}
		if p.max >= 0 && count > p.max {
			*violations = append(*violations, Violation{
				Location: fmt.Sprintf("%s/%s", path, p.decl.name),
				Rule:     RuleTooManyElements,
				Message:  fmt.Sprintf("element %s occurs %d time(s), at most %d allowed", p.decl.name, count, p.max),
			})
		}
	}
	for ; idx < len(children); idx++ {
		*violations = append(*violations, Violation{
			Location: fmt.Sprintf("%s/%s", path, localName(children[idx].Tag)),
			Rule:     RuleUnexpectedElement,
			Message:  fmt.Sprintf("element %s is not allowed here", localName(children[idx].Tag)),
		})
	}
}

func findChild(el *etree.Element, local string) *etree.Element {
	for _, child := range el.ChildElements() {
		if localName(child.Tag) == local {
			return child
		}
	}
	return nil
}

func localName(tag string) string {
	if i := strings.IndexByte(tag, ':'); i >= 0 {
		return tag[i+1:]
	}
	return tag
}
