package gateway

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const defaultImageMIME = "image/png"

// EncodeDataURI 编码为 data:<mime>;base64,<payload>
func EncodeDataURI(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = defaultImageMIME
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURI 解析 base64 data URI，返回 MIME 类型和原始字节
func DecodeDataURI(uri string) (string, []byte, error) {
	if !strings.HasPrefix(uri, "data:") {
		return "", nil, errors.New("缺少 data: 前缀")
	}
	meta, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return "", nil, errors.New("缺少元数据与内容之间的逗号")
	}
	mimeType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return "", nil, errors.New("仅支持 base64 编码")
	}
	if mimeType == "" {
		mimeType = defaultImageMIME
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("base64 解码失败: %w", err)
	}
	if len(data) == 0 {
		return "", nil, errors.New("内容为空")
	}
	return mimeType, data, nil
}
