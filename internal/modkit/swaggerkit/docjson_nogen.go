//go:build !swag

package swaggerkit

var docReader = func() string {
	return `{"openapi":"3.0.3","info":{"title":"Chatlens API","version":"0.0.0"},"paths":{}}`
}
