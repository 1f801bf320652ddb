package kg

import "strings"

// Language identifies one of the language families the extractors
// recognize by file extension. This is deliberately coarse — the
// extractors are regex-driven, not parser-based, so "language" only needs
// to select which regex table to apply.
type Language string

const (
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangPython     Language = "python"
	LangRust       Language = "rust"
	LangGo         Language = "go"
	LangJava       Language = "java"
	LangC          Language = "c"
	LangCPP        Language = "cpp"
	LangCSharp     Language = "csharp"
	LangRuby       Language = "ruby"
	LangPHP        Language = "php"
	LangSwift      Language = "swift"
	LangKotlin     Language = "kotlin"
	LangHTML       Language = "html"
	LangCSS        Language = "css"
	LangUnknown    Language = ""
)

var extensionLanguage = map[string]Language{
	".js":    LangJavaScript,
	".jsx":   LangJavaScript,
	".mjs":   LangJavaScript,
	".cjs":   LangJavaScript,
	".ts":    LangTypeScript,
	".tsx":   LangTypeScript,
	".py":    LangPython,
	".rs":    LangRust,
	".go":    LangGo,
	".java":  LangJava,
	".c":     LangC,
	".h":     LangC,
	".cpp":   LangCPP,
	".cc":    LangCPP,
	".hpp":   LangCPP,
	".cs":    LangCSharp,
	".rb":    LangRuby,
	".php":   LangPHP,
	".swift": LangSwift,
	".kt":    LangKotlin,
	".kts":   LangKotlin,
	".html":  LangHTML,
	".htm":   LangHTML,
	".css":   LangCSS,
	".scss":  LangCSS,
}

// DetectLanguage infers a file's language family from its extension.
func DetectLanguage(path string) Language {
	ext := extOf(path)
	if lang, ok := extensionLanguage[ext]; ok {
		return lang
	}
	return LangUnknown
}

func extOf(path string) string {
	idx := strings.LastIndexByte(path, '.')
	if idx < 0 {
		return ""
	}
	return strings.ToLower(path[idx:])
}

// IsJSXCapable reports whether lang's files may contain JSX/TSX markup,
// which gates the React-component heuristics in symbols.go.
func IsJSXCapable(lang Language) bool {
	return lang == LangJavaScript || lang == LangTypeScript
}
