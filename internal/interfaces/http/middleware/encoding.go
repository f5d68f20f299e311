// Package middleware HTTP 中间件
package middleware

import (
	"bytes"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// EnsureUTF8JSON 把非 UTF-8 的 JSON 请求体按 GBK 转码
// 只处理 application/json，PDF 上传等二进制请求体原样放行
func EnsureUTF8JSON() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body == nil || c.Request.ContentLength == 0 || !isJSON(c.ContentType()) {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		c.Request.Body.Close()
		if err != nil {
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
			c.Next()
			return
		}

		if !utf8.Valid(body) {
			// Windows 中文终端下的 curl 默认发送 GBK
			if converted, err := decodeGBK(body); err == nil && utf8.Valid(converted) {
				body = converted
				c.Request.ContentLength = int64(len(body))
			}
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Next()
	}
}

func isJSON(contentType string) bool {
	return strings.HasSuffix(strings.ToLower(contentType), "json")
}

func decodeGBK(data []byte) ([]byte, error) {
	return io.ReadAll(transform.NewReader(bytes.NewReader(data), simplifiedchinese.GBK.NewDecoder()))
}
