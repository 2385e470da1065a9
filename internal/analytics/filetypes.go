package analytics

import (
	"path/filepath"
	"strings"
)

// FileType categorizes a file path for breakdown charts.
type FileType struct {
	Extension string
	Category  string
	Color     string
}

// Category names used by the breakdown charts.
const (
	CategoryCode     = "Code"
	CategoryFrontend = "Frontend"
	CategoryStyles   = "Styles"
	CategoryDocs     = "Docs"
	CategoryConfig   = "Config"
	CategoryData     = "Data"
	CategoryScripts  = "Scripts"
	CategoryOther    = "Other"
)

// otherColor is the neutral fallback for unknown extensions.
const otherColor = "#9e9e9e"

var fileTypes = map[string]FileType{
	".go":    {".go", CategoryCode, "#00add8"},
	".py":    {".py", CategoryCode, "#3572a5"},
	".java":  {".java", CategoryCode, "#b07219"},
	".rb":    {".rb", CategoryCode, "#701516"},
	".rs":    {".rs", CategoryCode, "#dea584"},
	".c":     {".c", CategoryCode, "#555555"},
	".h":     {".h", CategoryCode, "#555555"},
	".cpp":   {".cpp", CategoryCode, "#f34b7d"},
	".cs":    {".cs", CategoryCode, "#178600"},
	".php":   {".php", CategoryCode, "#4f5d95"},
	".swift": {".swift", CategoryCode, "#f05138"},
	".kt":    {".kt", CategoryCode, "#a97bff"},
	".js":    {".js", CategoryFrontend, "#f1e05a"},
	".jsx":   {".jsx", CategoryFrontend, "#f1e05a"},
	".ts":    {".ts", CategoryFrontend, "#3178c6"},
	".tsx":   {".tsx", CategoryFrontend, "#3178c6"},
	".vue":   {".vue", CategoryFrontend, "#41b883"},
	".html":  {".html", CategoryFrontend, "#e34c26"},
	".css":   {".css", CategoryStyles, "#563d7c"},
	".scss":  {".scss", CategoryStyles, "#c6538c"},
	".less":  {".less", CategoryStyles, "#1d365d"},
	".md":    {".md", CategoryDocs, "#083fa1"},
	".rst":   {".rst", CategoryDocs, "#141414"},
	".txt":   {".txt", CategoryDocs, "#888888"},
	".json":  {".json", CategoryConfig, "#292929"},
	".yaml":  {".yaml", CategoryConfig, "#cb171e"},
	".yml":   {".yml", CategoryConfig, "#cb171e"},
	".toml":  {".toml", CategoryConfig, "#9c4221"},
	".ini":   {".ini", CategoryConfig, "#d1dbe0"},
	".xml":   {".xml", CategoryConfig, "#0060ac"},
	".csv":   {".csv", CategoryData, "#237346"},
	".sql":   {".sql", CategoryData, "#e38c00"},
	".proto": {".proto", CategoryData, "#4a76c6"},
	".sh":    {".sh", CategoryScripts, "#89e051"},
	".bash":  {".bash", CategoryScripts, "#89e051"},
	".ps1":   {".ps1", CategoryScripts, "#012456"},
	".bat":   {".bat", CategoryScripts, "#c1f12e"},
}

// ClassifyFile maps a filename to its type triple. Unknown or missing
// extensions fall back to the Other category. Never fails.
func ClassifyFile(filename string) FileType {
	ext := strings.ToLower(filepath.Ext(filename))
	if ft, ok := fileTypes[ext]; ok {
		return ft
	}
	return FileType{Extension: ext, Category: CategoryOther, Color: otherColor}
}
