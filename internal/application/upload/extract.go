// Package upload 处理章节文件上传：识别格式、抽取正文、建档并提交分析
package upload

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"unicode/utf8"

	apperrors "manuscript-editor-api/pkg/errors"
)

// Format 支持的上传格式
type Format string

const (
	FormatText     Format = "txt"
	FormatMarkdown Format = "md"
	FormatRTF      Format = "rtf"
	FormatScriv    Format = "scriv"
	FormatDocx     Format = "docx"
)

const (
	mimeTextPlain = "text/plain"
	mimeDocx      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// SupportedExtensions 错误提示中列出的扩展名
var SupportedExtensions = []string{".txt", ".docx", ".scriv", ".rtf", ".md"}

// DetectFormat 按扩展名与 MIME 类型识别格式
//
// rtf 与 scriv 不做转换，按 UTF-8 文本读取。
func DetectFormat(filename, contentType string) (Format, error) {
	ext := strings.ToLower(path.Ext(strings.TrimSpace(filename)))
	mime := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}

	switch {
	case ext == ".docx" || mime == mimeDocx:
		return FormatDocx, nil
	case ext == ".md":
		return FormatMarkdown, nil
	case ext == ".rtf":
		return FormatRTF, nil
	case ext == ".scriv":
		return FormatScriv, nil
	case ext == ".txt" || mime == mimeTextPlain:
		return FormatText, nil
	}
	return "", apperrors.ErrUnsupportedFile.WithDetail(
		"please upload " + strings.Join(SupportedExtensions, ", ") + " files")
}

// Extract 抽取纯文本正文，maxBytes 同时限制 docx 解压后的正文长度
func Extract(format Format, data []byte, maxBytes int64) (string, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	switch format {
	case FormatDocx:
		return extractDocx(data, maxBytes)
	case FormatText, FormatMarkdown, FormatRTF, FormatScriv:
		return decodeText(data), nil
	}
	return "", apperrors.ErrUnsupportedFile.WithDetail(string(format))
}

// decodeText 去掉 BOM，非法 UTF-8 字节替换为 U+FFFD
func decodeText(data []byte) string {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), "\uFFFD")
}

const docxBody = "word/document.xml"

// docxMarkupRatio document.xml 解压后的上限为 maxBytes 的倍数
const docxMarkupRatio = 8

var errDocxTooLarge = errors.New("docx content exceeds limit")

// extractDocx 读取 word/document.xml，段落之间以空行分隔
func extractDocx(data []byte, maxBytes int64) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeUnsupportedFile, "invalid docx archive")
	}

	for _, f := range zr.File {
		if f.Name != docxBody {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return "", apperrors.Wrap(err, apperrors.CodeUnsupportedFile, "invalid docx archive")
		}
		defer rc.Close()
		body := &io.LimitedReader{R: rc, N: maxBytes*docxMarkupRatio + 1}
		text, err := docxText(body, int(maxBytes))
		if body.N <= 0 || errors.Is(err, errDocxTooLarge) {
			return "", apperrors.ErrFileTooLarge.WithDetail(fmt.Sprintf("extracted document exceeds %d bytes", maxBytes))
		}
		if err != nil {
			return "", apperrors.Wrap(err, apperrors.CodeUnsupportedFile, "invalid docx document")
		}
		return text, nil
	}
	return "", apperrors.ErrUnsupportedFile.WithDetail("docx archive has no " + docxBody)
}

// docxText maxText 为输出正文的字节上限
func docxText(r io.Reader, maxText int) (string, error) {
	dec := xml.NewDecoder(r)
	var (
		out       strings.Builder
		para      strings.Builder
		inText    bool
		paragraph int
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to decode document.xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				para.WriteByte('\t')
			case "br", "cr":
				para.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if paragraph > 0 {
					out.WriteString("\n\n")
				}
				out.WriteString(para.String())
				para.Reset()
				paragraph++
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
		if out.Len()+para.Len() > maxText {
			return "", errDocxTooLarge
		}
	}
	if para.Len() > 0 {
		if paragraph > 0 {
			out.WriteString("\n\n")
		}
		out.WriteString(para.String())
	}
	return out.String(), nil
}
