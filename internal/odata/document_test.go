package odata

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"io"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/odatasql/internal/database"
	"github.com/koustreak/odatasql/internal/schema"
)

func TestContext_URLs(t *testing.T) {
	c := Context{BaseURL: "http://host/", Database: "Sales"}
	assert.Equal(t, "http://host/odata/v4/Sales/", c.ServiceRoot())
	assert.Equal(t, "http://host/odata/v4/Sales/$metadata", c.ContextURL())

	c.Object = "Orders"
	assert.Equal(t, "http://host/odata/v4/Sales/$metadata#Orders", c.ContextURL())

	c = Context{BaseURL: "https://api.example.com", Database: "Sales Archive"}
	assert.Equal(t, "https://api.example.com/odata/v4/Sales%20Archive/$metadata", c.MetadataURL())
}

func TestRenderServiceDocument(t *testing.T) {
	objects := []schema.DatabaseObject{
		{Schema: "dbo", Name: "Orders", Kind: schema.KindTable},
		{Schema: "dbo", Name: "OrderView", Kind: schema.KindView},
	}

	out, err := RenderServiceDocument(Context{BaseURL: "http://host/", Database: "db"}, objects)
	require.NoError(t, err)

	var doc ServiceDocument
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Equal(t, "http://host/odata/v4/db/$metadata", doc.Context)
	assert.Equal(t, []EntitySetRef{
		{Name: "Orders", Kind: "EntitySet", URL: "Orders"},
		{Name: "OrderView", Kind: "EntitySet", URL: "OrderView"},
	}, doc.Value)
}

func TestRenderServiceDocument_EmptyValueIsArray(t *testing.T) {
	out, err := RenderServiceDocument(Context{BaseURL: "http://host/", Database: "db"}, nil)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"value":[]`)
}

func TestRenderEntityCollection_CountAndOrder(t *testing.T) {
	c := Context{BaseURL: "http://host/", Database: "db", Object: "Orders"}
	columns := []string{"Id", "Name"}

	tests := []struct {
		name string
		rows []database.Record
	}{
		{"zero", nil},
		{"one", []database.Record{{int64(1), "a"}}},
		{"many", []database.Record{{int64(3), "c"}, {int64(1), "a"}, {int64(2), "b"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := RenderEntityCollection(c, columns, tt.rows)
			require.NoError(t, err)

			var doc struct {
				Context string           `json:"@odata.context"`
				Value   []map[string]any `json:"value"`
				Count   int              `json:"@odata.count"`
			}
			require.NoError(t, json.Unmarshal(out, &doc))

			assert.Equal(t, "http://host/odata/v4/db/$metadata#Orders", doc.Context)
			assert.Equal(t, len(tt.rows), doc.Count)
			require.NotNil(t, doc.Value)
			require.Len(t, doc.Value, len(tt.rows))
			for i, r := range tt.rows {
				assert.Equal(t, float64(r[0].(int64)), doc.Value[i]["Id"])
				assert.Equal(t, r[1], doc.Value[i]["Name"])
			}
		})
	}
}

func TestRenderEntityCollection_MemberOrder(t *testing.T) {
	c := Context{BaseURL: "http://host/", Database: "db", Object: "T"}
	out, err := RenderEntityCollection(c, []string{"Zeta", "Alpha", "Mid"}, []database.Record{{1, 2, 3}})
	require.NoError(t, err)

	assert.Equal(t,
		`{"@odata.context":"http://host/odata/v4/db/$metadata#T","value":[{"Zeta":1,"Alpha":2,"Mid":3}],"@odata.count":1}`,
		string(out))
}

func TestRenderEntityCollection_ScalarKinds(t *testing.T) {
	id := uuid.MustParse("6F9619FF-8B86-D011-B42D-00C04FC964FF")
	row := database.Record{
		nil,
		true,
		decimal.RequireFromString("12.50"),
		[]byte("hi"),
		id,
		civil.DateTime{Date: civil.Date{Year: 2024, Month: time.March, Day: 1}, Time: civil.Time{Hour: 8}},
		math.NaN(),
	}
	columns := []string{"n", "b", "d", "bin", "g", "ts", "f"}

	out, err := RenderEntityCollection(Context{BaseURL: "http://h/", Database: "db", Object: "T"}, columns, []database.Record{row})
	require.NoError(t, err)

	s := string(out)
	assert.Contains(t, s, `"n":null`)
	assert.Contains(t, s, `"b":true`)
	assert.Contains(t, s, `"d":"12.5"`)
	assert.Contains(t, s, `"bin":"aGk="`)
	assert.Contains(t, s, `"g":"6f9619ff-8b86-d011-b42d-00c04fc964ff"`)
	assert.Contains(t, s, `"ts":"2024-03-01T08:00:00Z"`)
	assert.Contains(t, s, `"f":"NaN"`)
}

func TestNormalizeValue(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"zone-less date-time", civil.DateTime{
			Date: civil.Date{Year: 2024, Month: time.January, Day: 1},
			Time: civil.Time{Hour: 10},
		}, "2024-01-01T10:00:00Z"},
		{"zone-less with fraction", civil.DateTime{
			Date: civil.Date{Year: 2024, Month: time.January, Day: 1},
			Time: civil.Time{Hour: 10, Nanosecond: 500000000},
		}, "2024-01-01T10:00:00.5Z"},
		{"zoned keeps offset", time.Date(2024, 1, 1, 10, 0, 0, 0, est), "2024-01-01T10:00:00-05:00"},
		{"zoned utc is not forced to Z", time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), "2024-01-01T10:00:00+00:00"},
		{"date only", civil.Date{Year: 2024, Month: time.February, Day: 29}, "2024-02-29"},
		{"time only", civil.Time{Hour: 7, Minute: 5, Second: 9}, "07:05:09"},
		{"time with fraction", civil.Time{Hour: 7, Minute: 5, Second: 9, Nanosecond: 1234500}, "07:05:09.0012345"},
		{"positive infinity", math.Inf(1), "INF"},
		{"negative infinity", math.Inf(-1), "-INF"},
		{"float32 nan", float32(math.NaN()), "NaN"},
		{"finite float", 1.5, 1.5},
		{"int", int64(42), int64(42)},
		{"string", "x", "x"},
		{"nil", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeValue(tt.in))
		})
	}
}

func TestRenderMetadataDocument(t *testing.T) {
	schemas := []*schema.EntitySchema{
		{
			ObjectName: "Orders",
			Properties: []schema.Property{
				{Name: "OrderId", EdmType: schema.EdmInt32, IsKey: true},
				{Name: "LineNo", EdmType: schema.EdmInt16, IsKey: true},
				{Name: "Note", EdmType: schema.EdmString, Nullable: true},
			},
		},
		{
			ObjectName: "ActiveCustomers",
			Properties: []schema.Property{
				{Name: "Name", EdmType: schema.EdmString, Nullable: true, IsKey: true},
			},
		},
	}

	out, err := RenderMetadataDocument(Context{BaseURL: "http://host/", Database: "Sales"}, schemas)
	require.NoError(t, err)
	requireWellFormed(t, out)

	s := string(out)
	assert.True(t, strings.HasPrefix(s, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, s, `<edmx:Edmx Version="4.0" xmlns:edmx="http://docs.oasis-open.org/odata/ns/edmx">`)
	assert.Contains(t, s, `<Schema xmlns="http://docs.oasis-open.org/odata/ns/edm" Namespace="Sales">`)
	assert.Contains(t, s, `<EntityContainer Name="DefaultContainer">`)
	assert.Contains(t, s, `<EntitySet Name="Orders" EntityType="Sales.Orders">`)
	assert.Contains(t, s, `<EntitySet Name="ActiveCustomers" EntityType="Sales.ActiveCustomers">`)
	assert.Contains(t, s, `<Property Name="Note" Type="Edm.String" Nullable="true">`)
	assert.Contains(t, s, `<Property Name="OrderId" Type="Edm.Int32" Nullable="false">`)

	keyBlock := s[strings.Index(s, "<Key>"):strings.Index(s, "</Key>")]
	assert.Less(t, strings.Index(keyBlock, `"OrderId"`), strings.Index(keyBlock, `"LineNo"`))
	assert.NotContains(t, keyBlock, "Note")

	assert.Less(t, strings.Index(s, `<EntityType Name="Orders">`), strings.Index(s, `<EntityType Name="ActiveCustomers">`))
	assert.Less(t, strings.LastIndex(s, "</EntityType>"), strings.Index(s, "<EntityContainer"))
}

func TestRenderMetadataDocument_SingleKeyCounts(t *testing.T) {
	schemas := []*schema.EntitySchema{{
		ObjectName: "Regions",
		Properties: []schema.Property{
			{Name: "RegionId", EdmType: schema.EdmInt32, IsKey: true},
			{Name: "Label", EdmType: schema.EdmString, Nullable: true},
		},
	}}

	out, err := RenderMetadataDocument(Context{BaseURL: "http://host/", Database: "Sales"}, schemas)
	require.NoError(t, err)
	requireWellFormed(t, out)

	s := string(out)
	assert.Equal(t, 1, strings.Count(s, "<PropertyRef "))
	assert.Equal(t, 2, strings.Count(s, "<Property "))
	assert.Equal(t, 1, strings.Count(s, "<EntitySet "))
}

func TestRenderMetadataDocument_EscapesNames(t *testing.T) {
	schemas := []*schema.EntitySchema{{
		ObjectName: `R&D "Costs"`,
		Properties: []schema.Property{{Name: "<id>", EdmType: schema.EdmInt32, IsKey: true}},
	}}

	out, err := RenderMetadataDocument(Context{Database: "A&B"}, schemas)
	require.NoError(t, err)
	requireWellFormed(t, out)
	assert.Contains(t, string(out), `Namespace="A&amp;B"`)
}

func requireWellFormed(t *testing.T, doc []byte) {
	t.Helper()
	dec := xml.NewDecoder(bytes.NewReader(doc))
	for {
		_, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return
		}
		require.NoError(t, err)
	}
}
