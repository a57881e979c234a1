package source

import (
	"bytes"
	"encoding/json"
	"net/url"
	"slices"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/match"
	"github.com/briannafare/local-authority-snapshot-sub000/internal/model"
)

// chatScripts maps script-src keywords to a chat vendor.
var chatScripts = []struct{ keyword, provider string }{
	{"intercom", "intercom"},
	{"drift.com", "drift"},
	{"driftt", "drift"},
	{"tawk.to", "tawk"},
	{"livechatinc", "livechat"},
	{"zdassets", "zendesk"},
	{"zopim", "zendesk"},
	{"crisp.chat", "crisp"},
	{"hs-scripts", "hubspot"},
	{"usemessages", "hubspot"},
	{"tidio", "tidio"},
	{"olark", "olark"},
	{"podium", "podium"},
	{"birdeye", "birdeye"},
	{"freshchat", "freshchat"},
	{"gorgias", "gorgias"},
	{"smartsupp", "smartsupp"},
	{"leadconnector", "leadconnector"},
}

// chatMarkers are id/class fragments left by chat widgets.
var chatMarkers = []string{"chat-widget", "chatwidget", "live-chat", "livechat", "chat-bubble", "intercom-", "drift-", "tawk-", "crisp-client", "tidio-"}

// localBusinessTypes are schema.org types treated as a business identity block.
var localBusinessTypes = map[string]bool{
	"LocalBusiness": true, "Organization": true, "Restaurant": true, "FoodEstablishment": true,
	"Store": true, "ProfessionalService": true, "HomeAndConstructionBusiness": true,
	"Plumber": true, "Electrician": true, "HVACBusiness": true, "RoofingContractor": true,
	"GeneralContractor": true, "HousePainter": true, "Locksmith": true, "MovingCompany": true,
	"MedicalBusiness": true, "Dentist": true, "Physician": true, "MedicalClinic": true,
	"LegalService": true, "Attorney": true, "AutoRepair": true, "AutomotiveBusiness": true,
	"HealthAndBeautyBusiness": true, "BeautySalon": true, "HairSalon": true, "DaySpa": true,
	"RealEstateAgent": true, "FinancialService": true, "AccountingService": true,
	"InsuranceAgency": true, "LodgingBusiness": true, "Hotel": true, "CafeOrCoffeeShop": true,
	"Bakery": true, "BarOrPub": true, "ExerciseGym": true, "ChildCare": true, "VeterinaryCare": true,
}

// ParseSite extracts homepage facts from raw HTML in a single tree walk.
func ParseSite(raw []byte, pageURL string) model.SiteFacts {
	facts := model.SiteFacts{URL: pageURL, Headings: map[string]int{}}

	doc, err := html.Parse(bytes.NewReader(stripBOM(raw)))
	if err != nil {
		zap.L().Debug("site: html parse failed", zap.String("url", pageURL), zap.Error(err))
		return facts
	}

	base, _ := url.Parse(pageURL)
	pageHost := match.Host(pageURL)
	var text strings.Builder
	var telPhone string

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
			text.WriteByte(' ')
			return
		}
		if n.Type != html.ElementNode {
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c)
			}
			return
		}

		if chatMarker(attr(n, "id") + " " + attr(n, "class")) {
			facts.HasChatWidget = true
		}

		switch n.DataAtom {
		case atom.Title:
			if facts.Title == "" {
				facts.Title = strings.TrimSpace(nodeText(n))
			}
			return
		case atom.Meta:
			switch strings.ToLower(attr(n, "name")) {
			case "description":
				facts.MetaDescription = strings.TrimSpace(attr(n, "content"))
			case "viewport":
				facts.HasViewport = strings.Contains(strings.ToLower(attr(n, "content")), "width")
			}
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			facts.Headings[n.Data]++
			if n.DataAtom == atom.H1 {
				if t := collapse(nodeText(n)); t != "" {
					facts.H1Texts = append(facts.H1Texts, t)
				}
			}
		case atom.Script:
			if strings.EqualFold(attr(n, "type"), "application/ld+json") {
				parseJSONLD(nodeText(n), &facts.Schema)
				return
			}
			src := strings.ToLower(attr(n, "src"))
			body := strings.ToLower(nodeText(n))
			for _, cs := range chatScripts {
				if strings.Contains(src, cs.keyword) || (src == "" && strings.Contains(body, cs.keyword)) {
					facts.HasChatWidget = true
					if facts.ChatProvider == "" {
						facts.ChatProvider = cs.provider
					}
					break
				}
			}
			return
		case atom.Style, atom.Noscript:
			return
		case atom.Form:
			facts.Forms++
		case atom.Button:
			facts.Buttons++
		case atom.Input:
			switch strings.ToLower(attr(n, "type")) {
			case "submit", "button":
				facts.Buttons++
			}
		case atom.Img:
			facts.Images++
		case atom.A:
			href := strings.TrimSpace(attr(n, "href"))
			lowerHref := strings.ToLower(href)
			cls := strings.ToLower(attr(n, "class") + " " + attr(n, "role"))
			if strings.Contains(cls, "btn") || strings.Contains(cls, "button") {
				facts.Buttons++
			}
			switch {
			case strings.HasPrefix(lowerHref, "tel:"):
				facts.TelLinks++
				if telPhone == "" {
					telPhone = strings.TrimSpace(href[len("tel:"):])
				}
			case strings.HasPrefix(lowerHref, "mailto:"):
				facts.MailtoLinks++
			case href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(lowerHref, "javascript:"):
			default:
				if isInternal(base, pageHost, href) {
					facts.InternalLinks++
				} else {
					facts.ExternalLinks++
				}
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	switch {
	case telPhone != "":
		facts.Phone = telPhone
	default:
		if p := phoneRe.FindString(text.String()); p != "" {
			facts.Phone = strings.TrimSpace(p)
		} else if facts.Schema.BusinessPhone != "" {
			facts.Phone = facts.Schema.BusinessPhone
		}
	}
	if facts.HasChatWidget && facts.ChatProvider == "" {
		facts.ChatProvider = "unknown"
	}
	return facts
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return b.String()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func chatMarker(idClass string) bool {
	lower := strings.ToLower(idClass)
	for _, m := range chatMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

func isInternal(base *url.URL, pageHost, href string) bool {
	if base == nil {
		return !strings.Contains(href, "://")
	}
	u, err := base.Parse(href)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return match.Host(u.String()) == pageHost
}

// parseJSONLD folds one ld+json block into sd. Blocks may be an object, an
// array, or an object with @graph.
func parseJSONLD(raw string, sd *model.StructuredData) {
	var v any
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &v); err != nil {
		zap.L().Debug("site: invalid ld+json block", zap.Error(err))
		return
	}
	var visit func(any)
	visit = func(v any) {
		switch t := v.(type) {
		case []any:
			for _, item := range t {
				visit(item)
			}
		case map[string]any:
			if g, ok := t["@graph"]; ok {
				visit(g)
			}
			types := schemaTypes(t["@type"])
			for _, typ := range types {
				if !slices.Contains(sd.Types, typ) {
					sd.Types = append(sd.Types, typ)
				}
			}
			if isBusiness(types) {
				if sd.BusinessName == "" {
					sd.BusinessName, _ = t["name"].(string)
				}
				if sd.BusinessAddress == "" {
					sd.BusinessAddress = schemaAddress(t["address"])
				}
				if sd.BusinessPhone == "" {
					sd.BusinessPhone, _ = t["telephone"].(string)
				}
			}
			if e, ok := t["mainEntity"]; ok {
				visit(e)
			}
		}
	}
	visit(v)
}

func schemaTypes(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		var out []string
		for _, x := range t {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func isBusiness(types []string) bool {
	for _, t := range types {
		if localBusinessTypes[t] {
			return true
		}
	}
	return false
}

func schemaAddress(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		var parts []string
		for _, k := range []string{"streetAddress", "addressLocality", "addressRegion", "postalCode"} {
			if s, ok := t[k].(string); ok && s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case []any:
		if len(t) > 0 {
			return schemaAddress(t[0])
		}
	}
	return ""
}
