package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Urology-AI/data-manager/internal/appcontext"
	"github.com/Urology-AI/data-manager/internal/schema"
)

type fieldInfo struct {
	Field    string `json:"field"`
	Label    string `json:"label"`
	Type     string `json:"type"`
	Domain   string `json:"domain"`
	Critical bool   `json:"critical"`
}

// GetCanonicalFields returns the canonical field registry so the mapping UI
// can adapt when fields are added.
func GetCanonicalFields(_ *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		fields := make([]fieldInfo, 0, len(schema.Fields))
		domains := make(map[string][]fieldInfo)
		fieldMap := make(map[string]fieldInfo)

		for _, f := range schema.Fields {
			info := fieldInfo{
				Field:    f.Name,
				Label:    f.Label,
				Type:     string(f.Type),
				Domain:   f.Group,
				Critical: f.Critical,
			}
			fields = append(fields, info)
			domains[f.Group] = append(domains[f.Group], info)
			fieldMap[f.Name] = info
		}

		c.JSON(http.StatusOK, gin.H{
			"fields":    fields,
			"domains":   domains,
			"field_map": fieldMap,
		})
	}
}
