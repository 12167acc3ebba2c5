package tilemap

import (
	"fmt"
	"sort"
)

const (
	// Property types
	// see doc.mapeditor.org/en/stable/reference/tmx-map-format/#properties
	PropString = "string"
	PropInt    = "int"
	PropBool   = "bool"
)

// Properties is a more straight forward []*Property (used by the raw XML)
// that handles types a bit more gracefully.
type Properties struct {
	ints    map[string]int
	strings map[string]string
	bools   map[string]bool
}

// NewProperties returns an empty properties
func NewProperties() *Properties {
	return &Properties{
		ints:    map[string]int{},
		strings: map[string]string{},
		bools:   map[string]bool{},
	}
}

// tileProperties describes a tile group variant for export
func tileProperties(g *TileGroup, variant int) *Properties {
	p := NewProperties()
	p.SetInt("group", int(g.Group))
	p.SetInt("variant", variant)
	p.SetBool("auto", g.Auto)
	if g.Name != "" {
		p.SetString("name", g.Name)
	}
	return p
}

// toList mutates our nicer properties wrapper back into []*Property understood
// by the XML encoder. Properties are sorted by name so output is stable.
func (p *Properties) toList() []*Property {
	ps := []*Property{}
	for k, v := range p.ints {
		ps = append(ps, &Property{
			Name:  k,
			Value: fmt.Sprintf("%d", v),
			Type:  PropInt,
		})
	}
	for k, v := range p.bools {
		ps = append(ps, &Property{
			Name:  k,
			Value: fmt.Sprintf("%v", v),
			Type:  PropBool,
		})
	}
	for k, v := range p.strings {
		ps = append(ps, &Property{
			Name:  k,
			Value: v,
			Type:  PropString,
		})
	}
	sort.Slice(ps, func(i, j int) bool { return ps[i].Name < ps[j].Name })
	return ps
}

func (p *Properties) String(key string) (string, bool) {
	v, ok := p.strings[key]
	return v, ok
}

func (p *Properties) SetString(key, value string) {
	p.strings[key] = value
	delete(p.ints, key)
	delete(p.bools, key)
}

func (p *Properties) Int(key string) (int, bool) {
	v, ok := p.ints[key]
	return v, ok
}

func (p *Properties) SetInt(key string, value int) {
	p.ints[key] = value
	delete(p.strings, key)
	delete(p.bools, key)
}

func (p *Properties) Bool(key string) (bool, bool) {
	v, ok := p.bools[key]
	return v, ok
}

func (p *Properties) SetBool(key string, value bool) {
	p.bools[key] = value
	delete(p.strings, key)
	delete(p.ints, key)
}
