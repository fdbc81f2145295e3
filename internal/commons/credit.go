package commons

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	unknownAuthor  = "unknown author"
	unknownLicense = "unknown license"
)

// formatCredit renders the attribution line for a file:
//
//	<a href="{description}">{author}</a>, {license}, via Wikimedia Commons
//
// The license is linked when both its name and URL are known.
func formatCredit(info apiImageInfo) string {
	author := htmlText(info.ExtMetadata["Artist"].Text())
	if strings.Contains(strings.ToLower(author), unknownAuthor) {
		author = ""
	}
	if author == "" {
		author = "See page for author"
	}

	license := singleLine(info.ExtMetadata["LicenseShortName"].Text())
	if strings.Contains(strings.ToLower(license), unknownLicense) {
		license = ""
	}
	licenseURL := ""
	if license != "" {
		licenseURL = strings.TrimSpace(info.ExtMetadata["LicenseUrl"].Text())
	}

	var b strings.Builder
	b.WriteString(`<a href="`)
	b.WriteString(info.DescriptionURL)
	b.WriteString(`">`)
	b.WriteString(author)
	b.WriteString("</a>, ")
	switch {
	case license == "":
		b.WriteString("See page for license")
	case licenseURL != "":
		b.WriteString(`<a href="`)
		b.WriteString(licenseURL)
		b.WriteString(`">`)
		b.WriteString(license)
		b.WriteString("</a>")
	default:
		b.WriteString(license)
	}
	b.WriteString(", via Wikimedia Commons")
	return b.String()
}

// htmlText returns the visible text of an HTML fragment on a single line.
func htmlText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return singleLine(fragment)
	}
	return singleLine(doc.Text())
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
