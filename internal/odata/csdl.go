package odata

import (
	"encoding/xml"

	"github.com/koustreak/odatasql/internal/schema"
)

const (
	edmxNamespace = "http://docs.oasis-open.org/odata/ns/edmx"
	edmNamespace  = "http://docs.oasis-open.org/odata/ns/edm"
	containerName = "DefaultContainer"
)

type edmxDocument struct {
	XMLName      xml.Name         `xml:"edmx:Edmx"`
	Version      string           `xml:"Version,attr"`
	Xmlns        string           `xml:"xmlns:edmx,attr"`
	DataServices edmxDataServices `xml:"edmx:DataServices"`
}

type edmxDataServices struct {
	Schema csdlSchema `xml:"Schema"`
}

type csdlSchema struct {
	Xmlns       string        `xml:"xmlns,attr"`
	Namespace   string        `xml:"Namespace,attr"`
	EntityTypes []csdlEntity  `xml:"EntityType"`
	Container   csdlContainer `xml:"EntityContainer"`
}

type csdlEntity struct {
	Name       string         `xml:"Name,attr"`
	Key        *csdlKey       `xml:"Key,omitempty"`
	Properties []csdlProperty `xml:"Property"`
}

type csdlKey struct {
	Refs []csdlPropertyRef `xml:"PropertyRef"`
}

type csdlPropertyRef struct {
	Name string `xml:"Name,attr"`
}

type csdlProperty struct {
	Name     string `xml:"Name,attr"`
	Type     string `xml:"Type,attr"`
	Nullable bool   `xml:"Nullable,attr"`
}

type csdlContainer struct {
	Name string          `xml:"Name,attr"`
	Sets []csdlEntitySet `xml:"EntitySet"`
}

type csdlEntitySet struct {
	Name       string `xml:"Name,attr"`
	EntityType string `xml:"EntityType,attr"`
}

// RenderMetadataDocument returns the CSDL document of c.Database: one
// EntityType per schema and a single container with one EntitySet each.
// The schema namespace is the database name.
func RenderMetadataDocument(c Context, schemas []*schema.EntitySchema) ([]byte, error) {
	ns := c.Database
	s := csdlSchema{
		Xmlns:     edmNamespace,
		Namespace: ns,
		Container: csdlContainer{Name: containerName},
	}

	for _, es := range schemas {
		et := csdlEntity{Name: es.ObjectName}
		if keys := es.Keys(); len(keys) > 0 {
			et.Key = &csdlKey{}
			for _, k := range keys {
				et.Key.Refs = append(et.Key.Refs, csdlPropertyRef{Name: k})
			}
		}
		for _, p := range es.Properties {
			et.Properties = append(et.Properties, csdlProperty{
				Name:     p.Name,
				Type:     p.EdmType,
				Nullable: p.Nullable,
			})
		}
		s.EntityTypes = append(s.EntityTypes, et)
		s.Container.Sets = append(s.Container.Sets, csdlEntitySet{
			Name:       es.ObjectName,
			EntityType: ns + "." + es.ObjectName,
		})
	}

	doc := edmxDocument{
		Version:      Version,
		Xmlns:        edmxNamespace,
		DataServices: edmxDataServices{Schema: s},
	}

	out, err := xml.MarshalIndent(doc, "", "    ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}
