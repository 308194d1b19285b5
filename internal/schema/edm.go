package schema

import "strings"

// EDM primitive type names used in CSDL.
const (
	EdmString         = "Edm.String"
	EdmInt32          = "Edm.Int32"
	EdmInt64          = "Edm.Int64"
	EdmInt16          = "Edm.Int16"
	EdmByte           = "Edm.Byte"
	EdmDecimal        = "Edm.Decimal"
	EdmDouble         = "Edm.Double"
	EdmSingle         = "Edm.Single"
	EdmBoolean        = "Edm.Boolean"
	EdmGuid           = "Edm.Guid"
	EdmDate           = "Edm.Date"
	EdmTimeOfDay      = "Edm.TimeOfDay"
	EdmDateTimeOffset = "Edm.DateTimeOffset"
	EdmBinary         = "Edm.Binary"
)

var edmTypes = map[string]string{
	"int":              EdmInt32,
	"bigint":           EdmInt64,
	"varchar":          EdmString,
	"nvarchar":         EdmString,
	"datetime":         EdmDateTimeOffset,
	"datetime2":        EdmDateTimeOffset,
	"date":             EdmDate,
	"decimal":          EdmDecimal,
	"money":            EdmDecimal,
	"float":            EdmDouble,
	"bit":              EdmBoolean,
	"uniqueidentifier": EdmGuid,

	"tinyint":        EdmByte,
	"smallint":       EdmInt16,
	"real":           EdmSingle,
	"numeric":        EdmDecimal,
	"smallmoney":     EdmDecimal,
	"smalldatetime":  EdmDateTimeOffset,
	"datetimeoffset": EdmDateTimeOffset,
	"time":           EdmTimeOfDay,
	"binary":         EdmBinary,
	"varbinary":      EdmBinary,
	"image":          EdmBinary,
	"char":           EdmString,
	"nchar":          EdmString,
	"text":           EdmString,
	"ntext":          EdmString,
	"xml":            EdmString,
}

// MapType returns the EDM type for a native SQL Server type name.
// Matching is case-insensitive; unknown types map to Edm.String.
func MapType(nativeType string) string {
	if t, ok := edmTypes[strings.ToLower(strings.TrimSpace(nativeType))]; ok {
		return t
	}
	return EdmString
}
