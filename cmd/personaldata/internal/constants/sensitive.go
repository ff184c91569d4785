package constants

// PIIFields are the field names masked in every log line by default.
// Used in: logging/formatter.go, config/config.go
var PIIFields = []string{
	"name",
	"email",
	"phone",
	"ssn",
	"password",
}

// RedactedPlaceholder is the string written in place of a masked value.
// Used in: logging/formatter.go, config/config.go
const RedactedPlaceholder = "***"

// FieldSeparator delimits key=value pairs in a log message.
// Used in: logging/formatter.go, config/config.go
const FieldSeparator = ";"

// RowJoiner separates the rendered columns of a database row.
// Used in: main.go
const RowJoiner = FieldSeparator + " "
