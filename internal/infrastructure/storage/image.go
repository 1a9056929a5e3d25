package storage

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/jiffoo/mall/internal/domain/shared"
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// DetectImage sniffs data and returns its content type and file extension.
// Anything that is not jpeg, png, gif or webp is rejected.
func DetectImage(data []byte) (contentType, ext string, err error) {
	contentType = http.DetectContentType(data)
	ext, ok := imageExtensions[contentType]
	if !ok {
		return "", "", shared.NewDomainError("INVALID_INPUT",
			fmt.Sprintf("Unsupported image type %s", contentType))
	}
	return contentType, ext, nil
}

// ProductImageKey is the object key for a new product image
func ProductImageKey(tenantID, productID uuid.UUID, ext string) string {
	return fmt.Sprintf("tenants/%s/products/%s/%s%s", tenantID, productID, uuid.NewString(), ext)
}
