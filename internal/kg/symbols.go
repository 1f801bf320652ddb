package kg

import "regexp"

// symbolPattern pairs a regex with the kind it denotes. The regex's first
// capture group is the symbol name.
type symbolPattern struct {
	re   *regexp.Regexp
	kind SymbolKind
}

// generalPatterns covers the "functions, classes, interfaces, structs,
// traits, modules, constants, types" half of the symbol-kind list, one
// table per general-purpose language family.
var generalPatterns = map[Language][]symbolPattern{
	LangJavaScript: {
		{regexp.MustCompile(`(?m)^\s*(?:export\s+)?(?:async\s+)?function\s+(\w+)`), SymFunction},
		{regexp.MustCompile(`(?m)^\s*(?:export\s+)?class\s+(\w+)`), SymClass},
		{regexp.MustCompile(`(?m)^\s*(?:export\s+)?const\s+(\w+)\s*=`), SymConstant},
	},
	LangTypeScript: {
		{regexp.MustCompile(`(?m)^\s*(?:export\s+)?(?:async\s+)?function\s+(\w+)`), SymFunction},
		{regexp.MustCompile(`(?m)^\s*(?:export\s+)?class\s+(\w+)`), SymClass},
		{regexp.MustCompile(`(?m)^\s*(?:export\s+)?interface\s+(\w+)`), SymInterface},
		{regexp.MustCompile(`(?m)^\s*(?:export\s+)?type\s+(\w+)\s*=`), SymType},
		{regexp.MustCompile(`(?m)^\s*(?:export\s+)?const\s+(\w+)\s*=`), SymConstant},
	},
	LangPython: {
		{regexp.MustCompile(`(?m)^\s*def\s+(\w+)\s*\(`), SymFunction},
		{regexp.MustCompile(`(?m)^\s*class\s+(\w+)`), SymClass},
		{regexp.MustCompile(`(?m)^([A-Z][A-Z0-9_]*)\s*=`), SymConstant},
	},
	LangRust: {
		{regexp.MustCompile(`(?m)^\s*(?:pub\s+)?fn\s+(\w+)`), SymFunction},
		{regexp.MustCompile(`(?m)^\s*(?:pub\s+)?struct\s+(\w+)`), SymStruct},
		{regexp.MustCompile(`(?m)^\s*(?:pub\s+)?trait\s+(\w+)`), SymTrait},
		{regexp.MustCompile(`(?m)^\s*(?:pub\s+)?enum\s+(\w+)`), SymType},
		{regexp.MustCompile(`(?m)^\s*(?:pub\s+)?mod\s+(\w+)`), SymModule},
		{regexp.MustCompile(`(?m)^\s*(?:pub\s+)?const\s+(\w+)\s*:`), SymConstant},
	},
	LangGo: {
		{regexp.MustCompile(`(?m)^func\s+(?:\([^)]*\)\s*)?(\w+)`), SymFunction},
		{regexp.MustCompile(`(?m)^type\s+(\w+)\s+struct\b`), SymStruct},
		{regexp.MustCompile(`(?m)^type\s+(\w+)\s+interface\b`), SymInterface},
		{regexp.MustCompile(`(?m)^type\s+(\w+)\s+\w`), SymType},
		{regexp.MustCompile(`(?m)^const\s+(\w+)\s*=`), SymConstant},
	},
	LangJava: {
		{regexp.MustCompile(`(?m)\bclass\s+(\w+)`), SymClass},
		{regexp.MustCompile(`(?m)\binterface\s+(\w+)`), SymInterface},
		{regexp.MustCompile(`(?m)\bstatic\s+final\s+\w+\s+(\w+)\s*=`), SymConstant},
	},
	LangCSharp: {
		{regexp.MustCompile(`(?m)\bclass\s+(\w+)`), SymClass},
		{regexp.MustCompile(`(?m)\binterface\s+(\w+)`), SymInterface},
		{regexp.MustCompile(`(?m)\bstruct\s+(\w+)`), SymStruct},
		{regexp.MustCompile(`(?m)\bconst\s+\w+\s+(\w+)\s*=`), SymConstant},
	},
	LangC: {
		{regexp.MustCompile(`(?m)^\w[\w\s*]*\s(\w+)\s*\([^;]*\)\s*\{`), SymFunction},
		{regexp.MustCompile(`(?m)^struct\s+(\w+)\s*\{`), SymStruct},
		{regexp.MustCompile(`(?m)^#define\s+(\w+)\s`), SymConstant},
	},
	LangCPP: {
		{regexp.MustCompile(`(?m)^\w[\w\s*:<>]*\s(\w+)\s*\([^;]*\)\s*\{`), SymFunction},
		{regexp.MustCompile(`(?m)\bclass\s+(\w+)`), SymClass},
		{regexp.MustCompile(`(?m)\bstruct\s+(\w+)`), SymStruct},
		{regexp.MustCompile(`(?m)^#define\s+(\w+)\s`), SymConstant},
	},
	LangRuby: {
		{regexp.MustCompile(`(?m)^\s*def\s+(\w+)`), SymFunction},
		{regexp.MustCompile(`(?m)^\s*class\s+(\w+)`), SymClass},
		{regexp.MustCompile(`(?m)^\s*module\s+(\w+)`), SymModule},
		{regexp.MustCompile(`(?m)^([A-Z][A-Z0-9_]*)\s*=`), SymConstant},
	},
	LangPHP: {
		{regexp.MustCompile(`(?m)\bfunction\s+(\w+)\s*\(`), SymFunction},
		{regexp.MustCompile(`(?m)\bclass\s+(\w+)`), SymClass},
		{regexp.MustCompile(`(?m)\binterface\s+(\w+)`), SymInterface},
		{regexp.MustCompile(`(?m)\bconst\s+(\w+)\s*=`), SymConstant},
	},
	LangSwift: {
		{regexp.MustCompile(`(?m)\bfunc\s+(\w+)\s*\(`), SymFunction},
		{regexp.MustCompile(`(?m)\bclass\s+(\w+)`), SymClass},
		{regexp.MustCompile(`(?m)\bstruct\s+(\w+)`), SymStruct},
		{regexp.MustCompile(`(?m)\bprotocol\s+(\w+)`), SymInterface},
		{regexp.MustCompile(`(?m)\blet\s+(\w+)\s*:\s*\w+\s*=`), SymConstant},
	},
	LangKotlin: {
		{regexp.MustCompile(`(?m)\bfun\s+(\w+)\s*\(`), SymFunction},
		{regexp.MustCompile(`(?m)\bclass\s+(\w+)`), SymClass},
		{regexp.MustCompile(`(?m)\binterface\s+(\w+)`), SymInterface},
		{regexp.MustCompile(`(?m)\bobject\s+(\w+)`), SymModule},
		{regexp.MustCompile(`(?m)\bconst\s+val\s+(\w+)\s*=`), SymConstant},
	},
}

// reactComponentRe recognizes a PascalCase function/const that returns
// JSX, the common React function-component shape.
var reactComponentRe = regexp.MustCompile(`(?m)^\s*(?:export\s+)?(?:default\s+)?function\s+([A-Z]\w*)\s*\(`)
var reactConstComponentRe = regexp.MustCompile(`(?m)^\s*(?:export\s+)?const\s+([A-Z]\w*)\s*(?::\s*React\.FC[^=]*)?=\s*(?:\([^)]*\)|[A-Za-z0-9_]+)\s*(?::[^=]*)?=>`)
var uiComponentImportRe = regexp.MustCompile(`from\s+['"][^'"]*/(?:components|ui)/(\w+)['"]`)

var (
	ngComponentRe = regexp.MustCompile(`@Component\s*\(\s*\{[^}]*\}\s*\)\s*(?:export\s+)?class\s+(\w+)`)
	ngModuleRe    = regexp.MustCompile(`@NgModule\s*\(\s*\{[^}]*\}\s*\)\s*(?:export\s+)?class\s+(\w+)`)
	ngServiceRe   = regexp.MustCompile(`@Injectable\s*\([^)]*\)\s*(?:export\s+)?class\s+(\w+)`)
	ngRouteRe     = regexp.MustCompile(`path\s*:\s*['"]([^'"]*)['"]`)
)

var (
	cssClassRe     = regexp.MustCompile(`\.([a-zA-Z_][\w-]*)\s*\{`)
	cssIDRe        = regexp.MustCompile(`#([a-zA-Z_][\w-]*)\s*\{`)
	cssVarRe       = regexp.MustCompile(`--([a-zA-Z_][\w-]*)\s*:`)
	tailwindRe     = regexp.MustCompile(`@(tailwind|apply|layer)\s+([\w-]+)?`)
	htmlTemplateRe = regexp.MustCompile(`<template\s+id=['"]([^'"]+)['"]`)
	htmlSectionRe  = regexp.MustCompile(`<(?:section|header|footer|main|nav|article)\s+id=['"]([^'"]+)['"]`)
	htmlAnchorRe   = regexp.MustCompile(`<a\s+[^>]*href=['"]#([^'"]+)['"]`)
)

// extractedSymbol is a symbol occurrence before node-id assignment; name
// disambiguation (the running #idx) happens once all occurrences in a file
// are collected, in extractFileSymbols.
type extractedSymbol struct {
	kind      SymbolKind
	name      string
	framework string
}

func extractFileSymbols(lang Language, content string) []extractedSymbol {
	var out []extractedSymbol

	for _, p := range generalPatterns[lang] {
		for _, m := range p.re.FindAllStringSubmatch(content, -1) {
			out = append(out, extractedSymbol{kind: p.kind, name: m[1]})
		}
	}

	if IsJSXCapable(lang) {
		for _, m := range reactComponentRe.FindAllStringSubmatch(content, -1) {
			out = append(out, extractedSymbol{kind: SymReactComponent, name: m[1], framework: "react"})
		}
		for _, m := range reactConstComponentRe.FindAllStringSubmatch(content, -1) {
			out = append(out, extractedSymbol{kind: SymReactComponent, name: m[1], framework: "react"})
		}
		for _, m := range uiComponentImportRe.FindAllStringSubmatch(content, -1) {
			out = append(out, extractedSymbol{kind: SymUIComponent, name: m[1], framework: "react"})
		}
		for _, m := range ngComponentRe.FindAllStringSubmatch(content, -1) {
			out = append(out, extractedSymbol{kind: SymNgComponent, name: m[1], framework: "angular"})
		}
		for _, m := range ngModuleRe.FindAllStringSubmatch(content, -1) {
			out = append(out, extractedSymbol{kind: SymNgModule, name: m[1], framework: "angular"})
		}
		for _, m := range ngServiceRe.FindAllStringSubmatch(content, -1) {
			out = append(out, extractedSymbol{kind: SymNgService, name: m[1], framework: "angular"})
		}
		if ngModuleRe.MatchString(content) || ngComponentRe.MatchString(content) {
			for _, m := range ngRouteRe.FindAllStringSubmatch(content, -1) {
				out = append(out, extractedSymbol{kind: SymNgRoute, name: m[1], framework: "angular"})
			}
		}
	}

	if lang == LangCSS {
		for _, m := range cssClassRe.FindAllStringSubmatch(content, -1) {
			out = append(out, extractedSymbol{kind: SymStyleClass, name: m[1]})
		}
		for _, m := range cssIDRe.FindAllStringSubmatch(content, -1) {
			out = append(out, extractedSymbol{kind: SymStyleID, name: m[1]})
		}
		for _, m := range cssVarRe.FindAllStringSubmatch(content, -1) {
			out = append(out, extractedSymbol{kind: SymCSSVariable, name: m[1]})
		}
		for _, m := range tailwindRe.FindAllStringSubmatch(content, -1) {
			name := m[1]
			if m[2] != "" {
				name = m[1] + ":" + m[2]
			}
			out = append(out, extractedSymbol{kind: SymTailwindDir, name: name, framework: "tailwind"})
		}
	}

	if lang == LangHTML {
		for _, m := range htmlTemplateRe.FindAllStringSubmatch(content, -1) {
			out = append(out, extractedSymbol{kind: SymHTMLTemplate, name: m[1]})
		}
		for _, m := range htmlSectionRe.FindAllStringSubmatch(content, -1) {
			out = append(out, extractedSymbol{kind: SymHTMLSection, name: m[1]})
		}
		for _, m := range htmlAnchorRe.FindAllStringSubmatch(content, -1) {
			out = append(out, extractedSymbol{kind: SymHTMLAnchor, name: m[1]})
		}
	}

	return out
}
