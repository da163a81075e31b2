package portfolio

import (
	"fmt"
	"strings"

	"folio/internal/domain"
)

// Persona builds the assistant session configuration for this portfolio.
func (c *Catalog) Persona(model string, mapsGrounding bool) domain.PersonaConfig {
	return domain.PersonaConfig{
		Model:             model,
		SystemInstruction: c.SystemInstruction(mapsGrounding),
		MapsGrounding:     mapsGrounding,
	}
}

// SystemInstruction renders the persona prompt: who the assistant speaks
// for, how to reach them, what they do and which language to answer in.
func (c *Catalog) SystemInstruction(mapsGrounding bool) string {
	p := c.Profile
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are the interactive AI assistant for %s's portfolio website.\n", p.Name)
	if len(p.Roles) > 0 || p.Location != "" {
		fmt.Fprintf(&sb, "%s is a %s", c.DisplayName(), joinAnd(p.Roles))
		if p.Location != "" {
			fmt.Fprintf(&sb, " based in %s", p.Location)
		}
		sb.WriteString(".\n")
	}
	if len(c.Contact.Phones) > 0 {
		fmt.Fprintf(&sb, "Phone numbers: %s.", joinAnd(c.Contact.Phones))
		if c.Contact.Email != "" {
			sb.WriteString(" ")
		} else {
			sb.WriteString("\n")
		}
	}
	if c.Contact.Email != "" {
		fmt.Fprintf(&sb, "Email: %s.\n", c.Contact.Email)
	}

	if len(c.Specialties) > 0 {
		sb.WriteString("\nSpecialties:\n")
		for i, s := range c.Specialties {
			fmt.Fprintf(&sb, "%d. %s", i+1, s.Area)
			if s.Detail != "" {
				fmt.Fprintf(&sb, " (%s)", s.Detail)
			}
			sb.WriteString("\n")
		}
	}

	if len(c.Experience) > 0 {
		sb.WriteString("\nExperience:\n")
		for _, e := range c.Experience {
			fmt.Fprintf(&sb, "- %s: %s at %s\n", e.Period, e.Role, e.Company)
		}
	}

	sb.WriteString("\nBe helpful, professional, and concise.")
	if mapsGrounding {
		city := p.City
		if city == "" {
			city = p.Location
		}
		fmt.Fprintf(&sb, " If asked about location, use the googleMaps tool to provide context about %s if needed.", city)
	}
	sb.WriteString("\n")

	langs := p.Languages
	if len(langs) == 0 {
		langs = []string{"French", "English"}
	}
	fmt.Fprintf(&sb, "Always answer in the language the user speaks to you (%s).\n", joinOr(langs))
	return sb.String()
}

func joinAnd(items []string) string { return joinWith(items, "and") }

func joinOr(items []string) string { return joinWith(items, "or") }

func joinWith(items []string, conj string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " " + conj + " " + items[len(items)-1]
	}
}
