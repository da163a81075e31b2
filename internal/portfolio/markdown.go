package portfolio

import (
	"fmt"
	"strings"
)

// Markdown renders the profile card shown by the profile command.
func (c *Catalog) Markdown() string {
	p := c.Profile
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", p.Name)
	if p.Headline != "" {
		fmt.Fprintf(&sb, "**%s**", p.Headline)
		if p.Location != "" {
			fmt.Fprintf(&sb, " · %s", p.Location)
		}
		sb.WriteString("\n\n")
	}
	if p.Tagline != "" {
		fmt.Fprintf(&sb, "> %s\n\n", p.Tagline)
	}
	if p.Bio != "" {
		fmt.Fprintf(&sb, "%s\n\n", p.Bio)
	}

	sb.WriteString("## Contact\n\n")
	for _, phone := range c.Contact.Phones {
		fmt.Fprintf(&sb, "- Téléphone : %s\n", phone)
	}
	if c.Contact.Email != "" {
		fmt.Fprintf(&sb, "- Email : [%s](mailto:%s)\n", c.Contact.Email, c.Contact.Email)
	}
	if c.Contact.Office != "" {
		if c.Contact.MapURL != "" {
			fmt.Fprintf(&sb, "- Bureau : [%s](%s)\n", c.Contact.Office, c.Contact.MapURL)
		} else {
			fmt.Fprintf(&sb, "- Bureau : %s\n", c.Contact.Office)
		}
	}
	sb.WriteString("\n")

	if len(c.Skills) > 0 {
		sb.WriteString("## Compétences\n\n")
		for _, g := range c.Skills {
			fmt.Fprintf(&sb, "### %s\n\n", g.Category)
			sb.WriteString("| Compétence | Niveau |\n|---|---|\n")
			for _, s := range g.Items {
				fmt.Fprintf(&sb, "| %s | %s %d%% |\n", s.Name, levelBar(s.Level), s.Level)
			}
			sb.WriteString("\n")
		}
		if len(c.Tools) > 0 {
			fmt.Fprintf(&sb, "Outils : %s\n\n", strings.Join(c.Tools, " · "))
		}
	}

	if len(c.Services) > 0 {
		sb.WriteString("## Services\n\n")
		for _, s := range c.Services {
			fmt.Fprintf(&sb, "- **%s** : %s\n", s.Title, s.Description)
		}
		sb.WriteString("\n")
	}

	if len(c.Projects) > 0 {
		sb.WriteString("## Projets\n\n")
		for _, pr := range c.Projects {
			fmt.Fprintf(&sb, "- **%s** (%s) : %s", pr.Title, pr.Category, pr.Description)
			if len(pr.Tags) > 0 {
				fmt.Fprintf(&sb, " `%s`", strings.Join(pr.Tags, "` `"))
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	if len(c.Experience) > 0 {
		sb.WriteString("## Parcours\n\n")
		for _, e := range c.Experience {
			fmt.Fprintf(&sb, "- **%s** · %s, %s\n  %s\n", e.Period, e.Role, e.Company, e.Description)
		}
		sb.WriteString("\n")
	}

	if len(c.Education) > 0 {
		sb.WriteString("## Formation\n\n")
		for _, e := range c.Education {
			fmt.Fprintf(&sb, "- %s, %s (%s)\n", e.Title, e.School, e.Period)
		}
	}

	return strings.TrimRight(sb.String(), "\n") + "\n"
}

// levelBar draws a ten-cell bar for a 0-100 level.
func levelBar(level int) string {
	filled := max(0, min(10, (level+5)/10))
	return strings.Repeat("█", filled) + strings.Repeat("░", 10-filled)
}
