// Package skills discovers skill templates. A skill is a directory holding
// a SKILL.md file whose YAML frontmatter describes a multi-step workflow
// invoked via a slash command, plus any supporting files it bundles.
package skills

// FileName is the manifest file every skill directory carries.
const FileName = "SKILL.md"

// Skill represents a discovered skill with its metadata
type Skill struct {
	Metadata
	Directory      string // Full path to the skill directory
	Path           string // Full path to SKILL.md
	Content        string // Body of SKILL.md without frontmatter
	HasFrontmatter bool
	Frontmatter    map[string]any // Raw frontmatter, including unknown keys
}

// Metadata represents the YAML frontmatter in SKILL.md files
type Metadata struct {
	Name        string `mapstructure:"name" json:"name"`
	Category    string `mapstructure:"category" json:"category,omitempty"`
	Description string `mapstructure:"description" json:"description"`
	Usage       string `mapstructure:"usage" json:"usage,omitempty"`
	Input       string `mapstructure:"input" json:"input,omitempty"`
	Output      string `mapstructure:"output" json:"output,omitempty"`
}
