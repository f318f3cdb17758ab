package sitemap

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// DecodeError reports a payload that could not be turned into a Page.
type DecodeError struct {
	Version int
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode sitemap page (protocol v%d): %v", e.Version, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decode parses payload using the shape selected by version. Version 1 is the
// legacy XML page, version 2 and later the JSON page. Decoding is
// all-or-nothing: on error the returned page is nil.
func Decode(payload []byte, version int) (*Page, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, &DecodeError{Version: version, Err: fmt.Errorf("empty payload")}
	}
	var (
		page *Page
		err  error
	)
	switch {
	case version == VersionLegacy:
		page, err = decodeXML(payload)
	case version >= VersionJSON:
		page, err = decodeJSON(payload)
	default:
		err = fmt.Errorf("unsupported protocol version %d", version)
	}
	if err != nil {
		return nil, &DecodeError{Version: version, Err: err}
	}
	return page, nil
}

type jsonPage struct {
	ID      *string      `json:"id"`
	Title   string       `json:"title"`
	Link    string       `json:"link"`
	Leaf    bool         `json:"leaf"`
	Timeout bool         `json:"timeout"`
	Widgets []jsonWidget `json:"widgets"`
}

type jsonWidget struct {
	WidgetID string       `json:"widgetId"`
	Type     string       `json:"type"`
	Label    *string      `json:"label"`
	Icon     *string      `json:"icon"`
	Mappings []Mapping    `json:"mappings"`
	Item     *jsonItem    `json:"item"`
	Widgets  []jsonWidget `json:"widgets"`
}

type jsonItem struct {
	Name       string   `json:"name"`
	Label      *string  `json:"label"`
	Type       string   `json:"type"`
	State      string   `json:"state"`
	Link       string   `json:"link"`
	Editable   bool     `json:"editable"`
	Tags       []string `json:"tags"`
	GroupNames []string `json:"groupNames"`
}

func decodeJSON(payload []byte) (*Page, error) {
	var raw jsonPage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, err
	}
	if raw.ID == nil {
		return nil, fmt.Errorf("page id missing")
	}
	page := &Page{
		ID:      *raw.ID,
		Title:   raw.Title,
		Link:    raw.Link,
		Leaf:    raw.Leaf,
		Timeout: raw.Timeout,
	}
	widgets, err := convertJSONWidgets(raw.Widgets)
	if err != nil {
		return nil, err
	}
	page.Widgets = widgets
	return page, nil
}

func convertJSONWidgets(raw []jsonWidget) ([]Widget, error) {
	out := make([]Widget, 0, len(raw))
	for _, rw := range raw {
		w := Widget{
			ID:       rw.WidgetID,
			Type:     rw.Type,
			Label:    deref(rw.Label),
			Icon:     deref(rw.Icon),
			Mappings: make([]Mapping, 0, len(rw.Mappings)),
		}
		w.Mappings = append(w.Mappings, rw.Mappings...)
		if rw.Item != nil {
			if rw.Item.Name == "" {
				return nil, fmt.Errorf("widget %q: item without name", rw.WidgetID)
			}
			w.Item = &Item{
				Name:       rw.Item.Name,
				Label:      deref(rw.Item.Label),
				Type:       rw.Item.Type,
				State:      rw.Item.State,
				Link:       rw.Item.Link,
				Editable:   rw.Item.Editable,
				Tags:       rw.Item.Tags,
				GroupNames: rw.Item.GroupNames,
			}
		}
		children, err := convertJSONWidgets(rw.Widgets)
		if err != nil {
			return nil, err
		}
		w.Widgets = children
		out = append(out, w)
	}
	return out, nil
}

type xmlPage struct {
	XMLName xml.Name    `xml:"page"`
	ID      string      `xml:"id"`
	Title   string      `xml:"title"`
	Link    string      `xml:"link"`
	Leaf    string      `xml:"leaf"`
	Widgets []xmlWidget `xml:"widget"`
}

type xmlWidget struct {
	WidgetID string       `xml:"widgetId"`
	Type     string       `xml:"type"`
	Label    string       `xml:"label"`
	Icon     string       `xml:"icon"`
	Mappings []xmlMapping `xml:"mapping"`
	Item     *xmlItem     `xml:"item"`
	Widgets  []xmlWidget  `xml:"widget"`
}

// xmlMapping collects the <command> and <label> children of a <mapping>
// element. Unknown children are ignored.
type xmlMapping struct {
	Children []xmlChild `xml:",any"`
}

type xmlChild struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

func (m xmlMapping) mapping() Mapping {
	var out Mapping
	for _, child := range m.Children {
		switch child.XMLName.Local {
		case "command":
			out.Command = child.Value
		case "label":
			out.Label = child.Value
		}
	}
	return out
}

type xmlItem struct {
	Type  string `xml:"type"`
	Name  string `xml:"name"`
	Label string `xml:"label"`
	State string `xml:"state"`
	Link  string `xml:"link"`
}

func decodeXML(payload []byte) (*Page, error) {
	var raw xmlPage
	if err := xml.Unmarshal(payload, &raw); err != nil {
		return nil, err
	}
	leaf := false
	if v := strings.TrimSpace(raw.Leaf); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("page leaf flag %q: %w", v, err)
		}
		leaf = parsed
	}
	widgets, err := convertXMLWidgets(raw.Widgets)
	if err != nil {
		return nil, err
	}
	return &Page{
		ID:      strings.TrimSpace(raw.ID),
		Title:   raw.Title,
		Link:    strings.TrimSpace(raw.Link),
		Leaf:    leaf,
		Widgets: widgets,
	}, nil
}

func convertXMLWidgets(raw []xmlWidget) ([]Widget, error) {
	out := make([]Widget, 0, len(raw))
	for _, rw := range raw {
		w := Widget{
			ID:       strings.TrimSpace(rw.WidgetID),
			Type:     strings.TrimSpace(rw.Type),
			Label:    rw.Label,
			Icon:     strings.TrimSpace(rw.Icon),
			Mappings: make([]Mapping, 0, len(rw.Mappings)),
		}
		for _, m := range rw.Mappings {
			w.Mappings = append(w.Mappings, m.mapping())
		}
		if rw.Item != nil {
			name := strings.TrimSpace(rw.Item.Name)
			if name == "" {
				return nil, fmt.Errorf("widget %q: item without name", w.ID)
			}
			w.Item = &Item{
				Name:  name,
				Label: rw.Item.Label,
				Type:  strings.TrimSpace(rw.Item.Type),
				State: strings.TrimSpace(rw.Item.State),
				Link:  strings.TrimSpace(rw.Item.Link),
			}
		}
		children, err := convertXMLWidgets(rw.Widgets)
		if err != nil {
			return nil, err
		}
		w.Widgets = children
		out = append(out, w)
	}
	return out, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
