package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"google.golang.org/genai"
)

var analysisFields = []string{"explanation", "bugs", "improvements", "simulatedOutput"}

// analysisSchema 约束 AnalyzeCode 的响应形状
func analysisSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"explanation": {
				Type:        genai.TypeString,
				Description: "Plain-language explanation of what the code does.",
			},
			"bugs": {
				Type:        genai.TypeArray,
				Items:       &genai.Schema{Type: genai.TypeString},
				Description: "Bugs or errors found; empty when none.",
			},
			"improvements": {
				Type:        genai.TypeArray,
				Items:       &genai.Schema{Type: genai.TypeString},
				Description: "Suggested improvements.",
			},
			"simulatedOutput": {
				Type:        genai.TypeString,
				Description: "The output the program would print if executed.",
			},
		},
		Required:         analysisFields,
		PropertyOrdering: analysisFields,
	}
}

// analysisJSONSchema 同一个 schema 的 JSON Schema 表示，供 OpenAI 使用
func analysisJSONSchema() map[string]any {
	str := map[string]any{"type": "string"}
	arr := map[string]any{"type": "array", "items": str}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"explanation":     str,
			"bugs":            arr,
			"improvements":    arr,
			"simulatedOutput": str,
		},
		"required":             analysisFields,
		"additionalProperties": false,
	}
}

// rawAnalysis 用指针区分“缺失”和“零值”
type rawAnalysis struct {
	Explanation     *string   `json:"explanation"`
	Bugs            *[]string `json:"bugs"`
	Improvements    *[]string `json:"improvements"`
	SimulatedOutput *string   `json:"simulatedOutput"`
}

// decodeAnalysis 严格解析分析结果，任何字段缺失或类型不符都视为 SchemaViolation
func decodeAnalysis(payload string) (*CodeAnalysisResult, error) {
	const op = "AnalyzeCode"

	trimmed := strings.TrimSpace(payload)
	if trimmed == "" {
		return nil, schemaErr(op, errors.New("响应为空"))
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(trimmed)))
	var raw rawAnalysis
	if err := dec.Decode(&raw); err != nil {
		return nil, schemaErr(op, fmt.Errorf("解析 JSON 失败: %w", err))
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, schemaErr(op, errors.New("JSON 之后存在多余内容"))
	}

	var missing []string
	if raw.Explanation == nil {
		missing = append(missing, "explanation")
	}
	if raw.Bugs == nil || *raw.Bugs == nil {
		missing = append(missing, "bugs")
	}
	if raw.Improvements == nil || *raw.Improvements == nil {
		missing = append(missing, "improvements")
	}
	if raw.SimulatedOutput == nil {
		missing = append(missing, "simulatedOutput")
	}
	if len(missing) > 0 {
		return nil, schemaErr(op, fmt.Errorf("缺少必需字段: %s", strings.Join(missing, ", ")))
	}

	return &CodeAnalysisResult{
		Explanation:     *raw.Explanation,
		Bugs:            *raw.Bugs,
		Improvements:    *raw.Improvements,
		SimulatedOutput: *raw.SimulatedOutput,
	}, nil
}
