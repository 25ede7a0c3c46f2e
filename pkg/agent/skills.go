package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Skill is a named capability described by a SKILL.md file under
// skills_root/<name>/.
type Skill struct {
	Name string
	Path string
}

// SkillsLoader enumerates and loads skill definitions from a skills root
// directory. Pure functions over the filesystem; no caching.
type SkillsLoader struct {
	root string
}

func NewSkillsLoader(root string) *SkillsLoader {
	return &SkillsLoader{root: root}
}

// ListSkills enumerates skills_root/<name>/SKILL.md entries, sorted by
// name.
func (l *SkillsLoader) ListSkills() []Skill {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return nil
	}
	var skills []Skill
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		skillFile := filepath.Join(l.root, e.Name(), "SKILL.md")
		if _, err := os.Stat(skillFile); err == nil {
			skills = append(skills, Skill{Name: e.Name(), Path: skillFile})
		}
	}
	sort.Slice(skills, func(i, j int) bool { return skills[i].Name < skills[j].Name })
	return skills
}

// LoadSkill returns the text of a single skill's SKILL.md, or false if it
// does not exist.
func (l *SkillsLoader) LoadSkill(name string) (string, bool) {
	data, err := os.ReadFile(filepath.Join(l.root, name, "SKILL.md"))
	if err != nil {
		return "", false
	}
	return string(data), true
}

// BuildSkillsSummary produces a line-per-skill listing with a hint about
// the tool used to load a skill's full content.
func (l *SkillsLoader) BuildSkillsSummary() string {
	skills := l.ListSkills()
	if len(skills) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("# Available skills\n\n")
	for _, s := range skills {
		fmt.Fprintf(&b, "- %s (read_file \"%s\" for full instructions)\n", s.Name, s.Path)
	}
	return strings.TrimSuffix(b.String(), "\n")
}
