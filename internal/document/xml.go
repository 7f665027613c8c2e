// xml.go
//
// A document persistence store for wikis, with versioning, attachments and a recycle bin
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of docstore.
// docstore is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// docstore is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with docstore.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package document

import (
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/localnerve/docstore/internal/property"
)

const xmlTimeLayout = time.RFC3339Nano

type xmlDocument struct {
	XMLName           xml.Name        `xml:"document"`
	Wiki              string          `xml:"wiki,attr"`
	Space             string          `xml:"space,attr"`
	Name              string          `xml:"name,attr"`
	Locale            string          `xml:"locale,attr,omitempty"`
	DefaultLocale     string          `xml:"defaultLocale,omitempty"`
	Translation       bool            `xml:"translation"`
	Title             xmlText         `xml:"title"`
	Parent            xmlText         `xml:"parent,omitempty"`
	Syntax            string          `xml:"syntax,omitempty"`
	Author            string          `xml:"author,omitempty"`
	ContentAuthor     string          `xml:"contentAuthor,omitempty"`
	Creator           string          `xml:"creator,omitempty"`
	Comment           xmlText         `xml:"comment,omitempty"`
	MinorEdit         bool            `xml:"minorEdit"`
	Hidden            bool            `xml:"hidden"`
	CreationDate      string          `xml:"creationDate,omitempty"`
	Date              string          `xml:"date,omitempty"`
	ContentUpdateDate string          `xml:"contentUpdateDate,omitempty"`
	Version           string          `xml:"version,omitempty"`
	Content           xmlText         `xml:"content"`
	Class             *xmlClass       `xml:"class,omitempty"`
	Objects           []xmlObject     `xml:"object"`
	Attachments       []xmlAttachment `xml:"attachment"`
}

type xmlClass struct {
	XMLName       xml.Name   `xml:"class"`
	Name          string     `xml:"name,attr"`
	CustomMapping xmlText    `xml:"customMapping,omitempty"`
	Fields        []xmlField `xml:"field"`
}

type xmlField struct {
	Name       string `xml:"name,attr"`
	Type       string `xml:"type,attr"`
	NumberType string `xml:"numberType,attr,omitempty"`
	Pretty     string `xml:"pretty,attr,omitempty"`
	Number     int    `xml:"number,attr"`
	Multiple   bool   `xml:"multiple,attr,omitempty"`
	Relational bool   `xml:"relational,attr,omitempty"`
}

type xmlObject struct {
	Class      string        `xml:"class,attr"`
	ClassWiki  string        `xml:"classWiki,attr,omitempty"`
	Number     int           `xml:"number,attr"`
	GUID       string        `xml:"guid,attr,omitempty"`
	Properties []xmlProperty `xml:"property"`
}

type xmlProperty struct {
	Name  string    `xml:"name,attr"`
	Kind  string    `xml:"kind,attr"`
	Empty bool      `xml:"empty,attr,omitempty"`
	Value xmlText   `xml:"value,omitempty"`
	Items []xmlText `xml:"item"`
}

type xmlAttachment struct {
	Filename     string  `xml:"filename,attr"`
	Size         int64   `xml:"size,attr"`
	MimeType     string  `xml:"mimetype,attr,omitempty"`
	Author       string  `xml:"author,attr,omitempty"`
	Date         string  `xml:"date,attr,omitempty"`
	Version      string  `xml:"version,attr,omitempty"`
	Comment      xmlText `xml:"comment,omitempty"`
	ContentStore string  `xml:"store,attr,omitempty"`
	HasContent   bool    `xml:"hasContent,attr,omitempty"`
	Content      string  `xml:"content,omitempty"`
}

// xmlText is character data that switches to base64 when it holds text XML 1.0 cannot carry,
// such as most control characters or invalid UTF-8
type xmlText string

type xmlTextElement struct {
	Encoding string `xml:"encoding,attr,omitempty"`
	Value    string `xml:",chardata"`
}

const base64Encoding = "base64"

func (t xmlText) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	el := xmlTextElement{Value: string(t)}
	if !isXMLText(string(t)) {
		el = xmlTextElement{Encoding: base64Encoding, Value: base64.StdEncoding.EncodeToString([]byte(t))}
	}
	return e.EncodeElement(el, start)
}

func (t *xmlText) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var el xmlTextElement
	if err := d.DecodeElement(&el, &start); err != nil {
		return err
	}
	if el.Encoding != base64Encoding {
		*t = xmlText(el.Value)
		return nil
	}
	raw, err := base64.StdEncoding.DecodeString(el.Value)
	if err != nil {
		return fmt.Errorf("%s: %w", start.Name.Local, err)
	}
	*t = xmlText(raw)
	return nil
}

func isXMLText(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		switch {
		case r == 0x09 || r == 0x0A || r == 0x0D:
		case r >= 0x20 && r <= 0xD7FF:
		case r >= 0xE000 && r <= 0xFFFD:
		case r >= 0x10000 && r <= 0x10FFFF:
		default:
			return false
		}
	}
	return true
}

// XMLOptions selects what ToXML includes
type XMLOptions struct {
	AttachmentContent bool
}

// ToXML serializes the document. Attachment binaries are included, base64 encoded,
// only when requested and loaded.
func (d *Document) ToXML(opts XMLOptions) ([]byte, error) {
	xd := xmlDocument{
		Wiki:              d.Ref.Wiki,
		Space:             d.Ref.Space,
		Name:              d.Ref.Name,
		Locale:            d.Locale,
		DefaultLocale:     d.DefaultLocale,
		Translation:       d.Translation,
		Title:             xmlText(d.Title),
		Parent:            xmlText(d.Parent),
		Syntax:            d.Syntax,
		Author:            d.Author,
		ContentAuthor:     d.ContentAuthor,
		Creator:           d.Creator,
		Comment:           xmlText(d.Comment),
		MinorEdit:         d.MinorEdit,
		Hidden:            d.Hidden,
		CreationDate:      formatTime(d.CreationDate),
		Date:              formatTime(d.Date),
		ContentUpdateDate: formatTime(d.ContentUpdateDate),
		Version:           d.Version.String(),
		Content:           xmlText(d.Content),
		Class:             classToXML(d.class),
	}
	for _, o := range d.AllObjects() {
		xo := xmlObject{Class: o.ClassName, ClassWiki: o.ClassWiki, Number: o.Number, GUID: o.GUID}
		for _, p := range o.Properties() {
			xo.Properties = append(xo.Properties, propertyToXML(p))
		}
		xd.Objects = append(xd.Objects, xo)
	}
	for _, a := range d.attachments {
		xa := xmlAttachment{
			Filename:     a.Filename,
			Size:         a.Size,
			MimeType:     a.MimeType,
			Author:       a.Author,
			Date:         formatTime(a.Date),
			Version:      a.Version.String(),
			Comment:      xmlText(a.Comment),
			ContentStore: a.ContentStore,
		}
		if data, ok := a.Content(); ok && opts.AttachmentContent {
			xa.HasContent = true
			xa.Content = base64.StdEncoding.EncodeToString(data)
		}
		xd.Attachments = append(xd.Attachments, xa)
	}
	return xml.MarshalIndent(xd, "", " ")
}

// FromXML rebuilds a document serialized by ToXML. The result is clean and new.
func FromXML(data []byte) (*Document, error) {
	var xd xmlDocument
	if err := xml.Unmarshal(data, &xd); err != nil {
		return nil, fmt.Errorf("parse document xml: %w", err)
	}
	d := New(Reference{Wiki: xd.Wiki, Space: xd.Space, Name: xd.Name}, xd.Locale)
	d.DefaultLocale = xd.DefaultLocale
	d.Translation = xd.Translation
	d.Title = string(xd.Title)
	d.Parent = string(xd.Parent)
	d.Syntax = xd.Syntax
	d.Author = xd.Author
	d.ContentAuthor = xd.ContentAuthor
	d.Creator = xd.Creator
	d.Comment = string(xd.Comment)
	d.MinorEdit = xd.MinorEdit
	d.Hidden = xd.Hidden
	d.Content = string(xd.Content)

	var err error
	if d.CreationDate, err = parseTime(xd.CreationDate); err != nil {
		return nil, err
	}
	if d.Date, err = parseTime(xd.Date); err != nil {
		return nil, err
	}
	if d.ContentUpdateDate, err = parseTime(xd.ContentUpdateDate); err != nil {
		return nil, err
	}
	if xd.Version != "" {
		if d.Version, err = ParseVersion(xd.Version); err != nil {
			return nil, err
		}
	}
	d.class = classFromXML(xd.Class)

	for _, xo := range xd.Objects {
		o := NewObject(xo.Class)
		o.ClassWiki = xo.ClassWiki
		o.Number = xo.Number
		o.GUID = xo.GUID
		for _, xp := range xo.Properties {
			p, err := propertyFromXML(xp)
			if err != nil {
				return nil, err
			}
			o.Set(p)
		}
		d.SetObject(o)
	}

	for _, xa := range xd.Attachments {
		a := &Attachment{
			DocRef:       d.Ref,
			Filename:     xa.Filename,
			Size:         xa.Size,
			MimeType:     xa.MimeType,
			Author:       xa.Author,
			Comment:      string(xa.Comment),
			ContentStore: xa.ContentStore,
		}
		if a.Date, err = parseTime(xa.Date); err != nil {
			return nil, err
		}
		if xa.Version != "" {
			if a.Version, err = ParseVersion(xa.Version); err != nil {
				return nil, err
			}
		}
		if xa.HasContent {
			raw, err := base64.StdEncoding.DecodeString(xa.Content)
			if err != nil {
				return nil, fmt.Errorf("attachment %s content: %w", xa.Filename, err)
			}
			a.SetContent(raw)
		}
		d.attachments = append(d.attachments, a)
	}
	return d, nil
}

// ClassToXML serializes a class definition on its own
func ClassToXML(c *Class) (string, error) {
	if c.IsEmpty() {
		return "", nil
	}
	out, err := xml.Marshal(classToXML(c))
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// ClassFromXML parses ClassToXML output; empty input yields nil
func ClassFromXML(s string) (*Class, error) {
	if s == "" {
		return nil, nil
	}
	var xc xmlClass
	if err := xml.Unmarshal([]byte(s), &xc); err != nil {
		return nil, fmt.Errorf("parse class xml: %w", err)
	}
	return classFromXML(&xc), nil
}

func classToXML(c *Class) *xmlClass {
	if c.IsEmpty() {
		return nil
	}
	xc := &xmlClass{Name: c.Name, CustomMapping: xmlText(c.CustomMapping)}
	for _, f := range c.Fields {
		xc.Fields = append(xc.Fields, xmlField{
			Name:       f.Name,
			Type:       string(f.Type),
			NumberType: string(f.NumberType),
			Pretty:     f.Pretty,
			Number:     f.Number,
			Multiple:   f.Multiple,
			Relational: f.Relational,
		})
	}
	return xc
}

func classFromXML(xc *xmlClass) *Class {
	if xc == nil {
		return nil
	}
	c := &Class{Name: xc.Name, CustomMapping: string(xc.CustomMapping)}
	for _, xf := range xc.Fields {
		c.Fields = append(c.Fields, &Field{
			Name:       xf.Name,
			Type:       FieldType(xf.Type),
			NumberType: NumberType(xf.NumberType),
			Pretty:     xf.Pretty,
			Number:     xf.Number,
			Multiple:   xf.Multiple,
			Relational: xf.Relational,
		})
	}
	return c
}

func propertyToXML(p property.Property) xmlProperty {
	xp := xmlProperty{Name: p.Name, Kind: p.ClassType()}
	switch v := p.Value.(type) {
	case nil:
		xp.Empty = true
	case []string:
		xp.Items = make([]xmlText, len(v))
		for i, item := range v {
			xp.Items[i] = xmlText(item)
		}
	case time.Time:
		xp.Value = xmlText(v.Format(xmlTimeLayout))
	default:
		xp.Value = xmlText(p.String())
	}
	return xp
}

func propertyFromXML(xp xmlProperty) (property.Property, error) {
	kind := property.ParseKind(xp.Kind)
	if kind == property.KindUnknown {
		return property.Property{Name: xp.Name, Kind: kind, LegacyType: xp.Kind}, nil
	}
	if xp.Empty {
		return property.Property{Name: xp.Name, Kind: kind}, nil
	}
	if kind.IsList() {
		items := make([]string, len(xp.Items))
		for i, item := range xp.Items {
			items[i] = string(item)
		}
		return property.Property{Name: xp.Name, Kind: kind, Value: items}, nil
	}
	if kind == property.KindDate {
		t, err := time.Parse(xmlTimeLayout, string(xp.Value))
		if err != nil {
			return property.Property{}, fmt.Errorf("property %s: %w", xp.Name, err)
		}
		return property.Property{Name: xp.Name, Kind: kind, Value: t}, nil
	}
	return property.New(xp.Name, kind, string(xp.Value))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(xmlTimeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(xmlTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t, nil
}
