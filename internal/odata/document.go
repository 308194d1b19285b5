// Package odata renders OData v4 service, metadata and entity collection
// documents from catalog schemas and fetched rows.
package odata

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/koustreak/odatasql/internal/database"
	"github.com/koustreak/odatasql/internal/schema"
)

// Response headers.
const (
	HeaderVersion   = "OData-Version"
	Version         = "4.0"
	ContentTypeJSON = "application/json;odata.metadata=minimal"
	ContentTypeXML  = "application/xml"
)

const entitySetKind = "EntitySet"

// Context carries the request base URL and the target database and object
// used to build @odata.context links.
type Context struct {
	BaseURL  string
	Database string
	Object   string
}

// ServiceRoot returns the OData root of the database, with a trailing slash.
func (c Context) ServiceRoot() string {
	return strings.TrimRight(c.BaseURL, "/") + "/odata/v4/" + url.PathEscape(c.Database) + "/"
}

// MetadataURL returns the $metadata link of the database.
func (c Context) MetadataURL() string {
	return c.ServiceRoot() + "$metadata"
}

// ContextURL is the @odata.context value: the metadata URL, with a
// "#object" fragment when Object is set.
func (c Context) ContextURL() string {
	if c.Object == "" {
		return c.MetadataURL()
	}
	return c.MetadataURL() + "#" + c.Object
}

// EntitySetRef is one entry of the service document.
type EntitySetRef struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	URL  string `json:"url"`
}

// ServiceDocument is the OData root document.
type ServiceDocument struct {
	Context string         `json:"@odata.context"`
	Value   []EntitySetRef `json:"value"`
}

// EntityCollection is the payload returned for an entity set.
type EntityCollection struct {
	Context string   `json:"@odata.context"`
	Value   []Entity `json:"value"`
	Count   int      `json:"@odata.count"`
}

// Entity is one row. It marshals as a JSON object whose members follow
// column order.
type Entity struct {
	columns []string
	values  database.Record
}

// MarshalJSON implements json.Marshaler.
func (e Entity) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range e.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		var v any
		if i < len(e.values) {
			v = NormalizeValue(e.values[i])
		}
		val, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// NewServiceDocument lists every object as an entity set addressed by its
// bare name.
func NewServiceDocument(c Context, objects []schema.DatabaseObject) *ServiceDocument {
	doc := &ServiceDocument{
		Context: c.MetadataURL(),
		Value:   make([]EntitySetRef, 0, len(objects)),
	}
	for _, o := range objects {
		doc.Value = append(doc.Value, EntitySetRef{Name: o.Name, Kind: entitySetKind, URL: o.Name})
	}
	return doc
}

// NewEntityCollection wraps rows in source order. Count equals len(rows).
func NewEntityCollection(c Context, columns []string, rows []database.Record) *EntityCollection {
	coll := &EntityCollection{
		Context: c.ContextURL(),
		Value:   make([]Entity, 0, len(rows)),
		Count:   len(rows),
	}
	for _, r := range rows {
		coll.Value = append(coll.Value, Entity{columns: columns, values: r})
	}
	return coll
}

// RenderServiceDocument returns the JSON service document.
func RenderServiceDocument(c Context, objects []schema.DatabaseObject) ([]byte, error) {
	return json.Marshal(NewServiceDocument(c, objects))
}

// RenderEntityCollection returns the JSON entity collection payload.
func RenderEntityCollection(c Context, columns []string, rows []database.Record) ([]byte, error) {
	return json.Marshal(NewEntityCollection(c, columns, rows))
}
