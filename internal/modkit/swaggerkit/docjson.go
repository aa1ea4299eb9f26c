//go:build swag

package swaggerkit

import docs "chatlens/internal/services/api/docs"

var docReader = func() string { return docs.SwaggerInfo.ReadDoc() }
