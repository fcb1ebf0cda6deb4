package task

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Tree limits for the frontmatter header. Header content can originate from
// untrusted writers, so oversized or over-nested trees are rejected before
// field decoding.
const (
	MaxTreeDepth = 24
	MaxTreeNodes = 2000
)

const fence = "---"

// Strict formats for the calendar and clock fields.
const (
	dateFormat = "2006-01-02"
	timeFormat = "15:04"
)

// timestampFormats are accepted for created/modified/completed, tried in
// order. Fractional seconds are optional; a zoneless value is read as UTC.
var timestampFormats = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// keyAliases maps normalized (lowercased) header keys to canonical field
// names. Legacy spellings from hand-edited files and other tools normalize
// here; the first occurrence of a canonical field wins.
var keyAliases = map[string]string{
	"title":             "title",
	"status":            "status",
	"state":             "status",
	"due":               "due",
	"due_date":          "due",
	"duedate":           "due",
	"deadline":          "due",
	"due_time":          "due_time",
	"duetime":           "due_time",
	"defer":             "defer",
	"defer_date":        "defer",
	"start":             "defer",
	"hide_until":        "defer",
	"scheduled":         "scheduled",
	"scheduled_date":    "scheduled",
	"priority":          "priority",
	"prio":              "priority",
	"flagged":           "flagged",
	"flag":              "flagged",
	"starred":           "flagged",
	"area":              "area",
	"project":           "project",
	"tags":              "tags",
	"tag":               "tags",
	"labels":            "tags",
	"recurrence":        "recurrence",
	"repeat":            "recurrence",
	"recur":             "recurrence",
	"estimated_minutes": "estimated_minutes",
	"estimate":          "estimated_minutes",
	"description":       "description",
	"desc":              "description",
	"created":           "created",
	"created_at":        "created",
	"modified":          "modified",
	"modified_at":       "modified",
	"updated":           "modified",
	"updated_at":        "modified",
	"completed":         "completed",
	"completed_at":      "completed",
	"source":            "source",
}

// Parse decodes one task file's content into a Document.
//
// The header block is decoded as a generic yaml tree, bounded by
// MaxTreeDepth and MaxTreeNodes, then mapped onto Frontmatter through the
// alias table. Unrecognized keys are captured in document order and
// re-emitted unchanged by Serialize. A missing title falls back to
// fallbackTitle; a missing created timestamp falls back to CreatedSentinel.
//
// All failure modes surface as *ParseError. Parse never panics on malformed
// input.
func Parse(content []byte, fallbackTitle string) (*Document, error) {
	header, body, err := splitFences(content)
	if err != nil {
		return nil, err
	}

	var root yaml.Node
	if yErr := yaml.Unmarshal(header, &root); yErr != nil {
		return nil, structuralErr("invalid yaml header: %v", yErr)
	}

	nodes := 0
	if lErr := checkLimits(&root, 0, &nodes); lErr != nil {
		return nil, lErr
	}

	doc := &Document{Body: normalizeBody(body)}
	doc.Frontmatter.Status = StatusTodo
	doc.Frontmatter.Priority = PriorityNone

	mapping := headerMapping(&root)
	if mapping != nil {
		if mapping.Kind != yaml.MappingNode {
			return nil, structuralErr("header must be a key/value mapping, got %s", nodeKindName(mapping.Kind))
		}
		if fErr := decodeFields(mapping, doc); fErr != nil {
			return nil, fErr
		}
	}

	if doc.Frontmatter.Title == "" {
		doc.Frontmatter.Title = fallbackTitle
	}
	if doc.Frontmatter.Title == "" {
		return nil, fieldErr("title", "missing and no fallback available")
	}
	if doc.Frontmatter.Created.IsZero() {
		doc.Frontmatter.Created = CreatedSentinel
	}

	return doc, nil
}

// splitFences separates the delimited header block from the trailing body.
func splitFences(content []byte) (header []byte, body string, err error) {
	text := string(content)

	first, rest, found := strings.Cut(text, "\n")
	if !found || strings.TrimRight(first, "\r") != fence {
		return nil, "", structuralErr("missing opening %q delimiter", fence)
	}

	lines := strings.SplitAfter(rest, "\n")
	offset := 0
	for _, line := range lines {
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == fence {
			return []byte(rest[:offset]), rest[offset+len(line):], nil
		}
		offset += len(line)
	}

	return nil, "", structuralErr("missing closing %q delimiter", fence)
}

// checkLimits walks the yaml tree enforcing depth and node-count bounds.
func checkLimits(n *yaml.Node, depth int, count *int) *ParseError {
	if depth > MaxTreeDepth {
		return structuralErr("header nesting exceeds %d levels", MaxTreeDepth)
	}
	*count++
	if *count > MaxTreeNodes {
		return structuralErr("header exceeds %d nodes", MaxTreeNodes)
	}
	for _, child := range n.Content {
		if err := checkLimits(child, depth+1, count); err != nil {
			return err
		}
	}
	return nil
}

// headerMapping unwraps the document node to the top-level content node.
// Returns nil for an empty header.
func headerMapping(root *yaml.Node) *yaml.Node {
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return nil
		}
		return root.Content[0]
	}
	if root.Kind == 0 {
		return nil
	}
	return root
}

func nodeKindName(k yaml.Kind) string {
	switch k {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.MappingNode:
		return "mapping"
	case yaml.AliasNode:
		return "alias"
	default:
		return "document"
	}
}

// decodeFields maps header key/value pairs onto the frontmatter, routing
// recognized keys through the alias table and collecting the rest verbatim.
func decodeFields(mapping *yaml.Node, doc *Document) *ParseError {
	fm := &doc.Frontmatter
	seen := make(map[string]bool)

	for i := 0; i+1 < len(mapping.Content); i += 2 {
		keyNode := mapping.Content[i]
		valNode := mapping.Content[i+1]

		canonical, known := keyAliases[strings.ToLower(keyNode.Value)]
		if !known || keyNode.Kind != yaml.ScalarNode {
			doc.Unknown = append(doc.Unknown, UnknownField{Key: keyNode.Value, Value: valNode})
			continue
		}
		if seen[canonical] {
			continue // first occurrence wins
		}
		seen[canonical] = true

		if err := decodeField(canonical, valNode, fm); err != nil {
			return err
		}
	}
	return nil
}

func decodeField(canonical string, val *yaml.Node, fm *Frontmatter) *ParseError {
	switch canonical {
	case "title":
		fm.Title = strings.TrimSpace(scalarValue(val))
	case "status":
		s, err := parseStatus(scalarValue(val))
		if err != nil {
			return err
		}
		fm.Status = s
	case "due":
		return decodeDate(val, canonical, &fm.Due)
	case "due_time":
		v := scalarValue(val)
		if v == "" {
			return nil
		}
		if _, err := time.Parse(timeFormat, v); err != nil {
			return fieldErr(canonical, "want HH:MM, got %q", v)
		}
		fm.DueTime = v
	case "defer":
		return decodeDate(val, canonical, &fm.Defer)
	case "scheduled":
		return decodeDate(val, canonical, &fm.Scheduled)
	case "priority":
		p, err := parsePriority(scalarValue(val))
		if err != nil {
			return err
		}
		fm.Priority = p
	case "flagged":
		var b bool
		if err := val.Decode(&b); err != nil {
			return fieldErr(canonical, "want boolean, got %q", scalarValue(val))
		}
		fm.Flagged = b
	case "area":
		fm.Area = strings.TrimSpace(scalarValue(val))
	case "project":
		fm.Project = strings.TrimSpace(scalarValue(val))
	case "tags":
		tags, err := decodeTags(val)
		if err != nil {
			return err
		}
		fm.Tags = tags
	case "recurrence":
		fm.Recurrence = strings.TrimSpace(scalarValue(val))
	case "estimated_minutes":
		var n int
		if err := val.Decode(&n); err != nil {
			return fieldErr(canonical, "want integer, got %q", scalarValue(val))
		}
		if n < 0 {
			return fieldErr(canonical, "must be >= 0, got %d", n)
		}
		fm.EstimatedMinutes = n
	case "description":
		fm.Description = scalarValue(val)
	case "created":
		return decodeTimestamp(val, canonical, &fm.Created)
	case "modified":
		return decodeTimestamp(val, canonical, &fm.Modified)
	case "completed":
		return decodeTimestamp(val, canonical, &fm.Completed)
	case "source":
		fm.Source = strings.TrimSpace(scalarValue(val))
	}
	return nil
}

func scalarValue(n *yaml.Node) string {
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		return n.Alias.Value
	}
	return n.Value
}

func decodeDate(n *yaml.Node, key string, dst *time.Time) *ParseError {
	v := strings.TrimSpace(scalarValue(n))
	if v == "" {
		return nil
	}
	t, err := time.Parse(dateFormat, v)
	if err != nil {
		return fieldErr(key, "want YYYY-MM-DD, got %q", v)
	}
	*dst = t
	return nil
}

func decodeTimestamp(n *yaml.Node, key string, dst *time.Time) *ParseError {
	v := strings.TrimSpace(scalarValue(n))
	if v == "" {
		return nil
	}
	for _, layout := range timestampFormats {
		if t, err := time.Parse(layout, v); err == nil {
			*dst = t
			return nil
		}
	}
	return fieldErr(key, "want ISO-8601 timestamp, got %q", v)
}

// decodeTags accepts either a yaml list or a comma-separated string, for
// tolerance of hand-edited files. Duplicates collapse to first occurrence.
func decodeTags(n *yaml.Node) ([]string, *ParseError) {
	var raw []string

	switch n.Kind {
	case yaml.SequenceNode:
		for _, item := range n.Content {
			if item.Kind != yaml.ScalarNode {
				return nil, fieldErr("tags", "list items must be strings")
			}
			raw = append(raw, item.Value)
		}
	case yaml.ScalarNode:
		raw = strings.Split(n.Value, ",")
	default:
		return nil, fieldErr("tags", "want list or comma-separated string")
	}

	var tags []string
	seen := make(map[string]bool)
	for _, t := range raw {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	return tags, nil
}

func parseStatus(v string) (Status, *ParseError) {
	norm := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(v)), "_", "-")
	switch norm {
	case "":
		return StatusTodo, nil
	case "inprogress", "in-progress":
		return StatusInProgress, nil
	case "complete", "completed", "done":
		return StatusDone, nil
	case "canceled", "cancelled":
		return StatusCancelled, nil
	}
	s := Status(norm)
	if !s.IsValid() {
		return "", fieldErr("status", "unrecognized status %q", v)
	}
	return s, nil
}

func parsePriority(v string) (Priority, *ParseError) {
	norm := strings.ToLower(strings.TrimSpace(v))
	switch norm {
	case "":
		return PriorityNone, nil
	case "med":
		return PriorityMedium, nil
	}
	p := Priority(norm)
	if !p.IsValid() {
		return "", fieldErr("priority", "unrecognized priority %q", v)
	}
	return p, nil
}

// normalizeBody trims trailing newlines down to exactly one, or none for an
// empty body. Parse and Serialize both normalize, which is what makes the
// parse/serialize round trip exact.
func normalizeBody(body string) string {
	trimmed := strings.TrimRight(body, "\n")
	if trimmed == "" {
		return ""
	}
	return trimmed + "\n"
}

// Serialize encodes a document back to file content: deterministic key
// ordering, optional fields omitted rather than emitted as null, unknown
// keys re-emitted after the known ones in their original order, and a
// normalized trailing newline.
func Serialize(doc *Document) ([]byte, error) {
	mapping := &yaml.Node{Kind: yaml.MappingNode}
	fm := &doc.Frontmatter

	addScalar(mapping, "title", fm.Title)
	addScalar(mapping, "status", string(fm.Status))
	addDate(mapping, "due", fm.Due)
	if fm.DueTime != "" {
		addScalar(mapping, "due_time", fm.DueTime)
	}
	addDate(mapping, "defer", fm.Defer)
	addDate(mapping, "scheduled", fm.Scheduled)
	if fm.Priority != "" && fm.Priority != PriorityNone {
		addScalar(mapping, "priority", string(fm.Priority))
	}
	if fm.Flagged {
		addNode(mapping, "flagged", boolNode(true))
	}
	if fm.Area != "" {
		addScalar(mapping, "area", fm.Area)
	}
	if fm.Project != "" {
		addScalar(mapping, "project", fm.Project)
	}
	if len(fm.Tags) > 0 {
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, t := range fm.Tags {
			seq.Content = append(seq.Content, strNode(t))
		}
		addNode(mapping, "tags", seq)
	}
	if fm.Recurrence != "" {
		addScalar(mapping, "recurrence", fm.Recurrence)
	}
	if fm.EstimatedMinutes > 0 {
		addNode(mapping, "estimated_minutes", intNode(fm.EstimatedMinutes))
	}
	if fm.Description != "" {
		addScalar(mapping, "description", fm.Description)
	}
	addTimestamp(mapping, "created", fm.Created)
	addTimestamp(mapping, "modified", fm.Modified)
	addTimestamp(mapping, "completed", fm.Completed)
	if fm.Source != "" {
		addScalar(mapping, "source", fm.Source)
	}

	for _, u := range doc.Unknown {
		addNode(mapping, u.Key, u.Value)
	}

	var buf bytes.Buffer
	buf.WriteString(fence + "\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(mapping); err != nil {
		return nil, fmt.Errorf("encoding frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding frontmatter: %w", err)
	}

	buf.WriteString(fence + "\n")
	buf.WriteString(normalizeBody(doc.Body))

	return buf.Bytes(), nil
}

func addScalar(m *yaml.Node, key, val string) {
	if val == "" {
		return
	}
	addNode(m, key, strNode(val))
}

func addDate(m *yaml.Node, key string, t time.Time) {
	if t.IsZero() {
		return
	}
	addNode(m, key, strNode(t.Format(dateFormat)))
}

func addTimestamp(m *yaml.Node, key string, t time.Time) {
	if t.IsZero() {
		return
	}
	addNode(m, key, strNode(t.Format(time.RFC3339Nano)))
}

func addNode(m *yaml.Node, key string, val *yaml.Node) {
	m.Content = append(m.Content, strNode(key), val)
}

func strNode(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

func intNode(n int) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: fmt.Sprintf("%d", n)}
}

func boolNode(b bool) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: fmt.Sprintf("%t", b)}
}
