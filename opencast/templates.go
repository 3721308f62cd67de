package opencast

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"math"
	"strconv"
	"strings"
	"text/template"
	"time"
)

const RoleAdmin = "ROLE_ADMIN"

// CutEndSentinel is the cut end used when only the start was trimmed.
const CutEndSentinel = time.Duration(math.MaxInt32) * time.Second

const DefaultDCCTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<dublincore xmlns="http://www.opencastproject.org/xsd/1.0/dublincore/"
            xmlns:dcterms="http://purl.org/dc/terms/"
            xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">
  <dcterms:created xsi:type="dcterms:W3CDTF">{{ .Created }}</dcterms:created>
  <dcterms:title>{{ xml .Title }}</dcterms:title>
{{- if .Presenter }}
  <dcterms:creator>{{ xml .Presenter }}</dcterms:creator>
{{- end }}
{{- if .SeriesID }}
  <dcterms:isPartOf>{{ xml .SeriesID }}</dcterms:isPartOf>
{{- end }}
  <dcterms:spatial>Opencast Studio</dcterms:spatial>
</dublincore>
`

const DefaultACLTemplate = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Policy PolicyId="mediapackage-1"
  RuleCombiningAlgId="urn:oasis:names:tc:xacml:1.0:rule-combining-algorithm:permit-overrides"
  Version="2.0"
  xmlns="urn:oasis:names:tc:xacml:2.0:policy:schema:os">
{{- range .Rules }}
  <Rule RuleId="{{ xml .Role }}_{{ .Action }}_Permit" Effect="Permit">
    <Target>
      <Actions>
        <Action>
          <ActionMatch MatchId="urn:oasis:names:tc:xacml:1.0:function:string-equal">
            <AttributeValue DataType="http://www.w3.org/2001/XMLSchema#string">{{ .Action }}</AttributeValue>
            <ActionAttributeDesignator AttributeId="urn:oasis:names:tc:xacml:1.0:action:action-id"
              DataType="http://www.w3.org/2001/XMLSchema#string"/>
          </ActionMatch>
        </Action>
      </Actions>
    </Target>
    <Condition>
      <Apply FunctionId="urn:oasis:names:tc:xacml:1.0:function:string-is-in">
        <AttributeValue DataType="http://www.w3.org/2001/XMLSchema#string">{{ xml .Role }}</AttributeValue>
        <SubjectAttributeDesignator AttributeId="urn:oasis:names:tc:xacml:2.0:subject:role"
          DataType="http://www.w3.org/2001/XMLSchema#string"/>
      </Apply>
    </Condition>
  </Rule>
{{- end }}
  <Rule RuleId="DenyRule" Effect="Deny"/>
</Policy>
`

const cuttingTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<smil xmlns="http://www.w3.org/ns/SMIL" version="3.0">
  <body>
    <par>
      <video clipBegin="{{ .Start }}s" clipEnd="{{ .End }}s" />
    </par>
  </body>
</smil>
`

var templateFuncs = template.FuncMap{
	"xml": xmlEscape,
}

func xmlEscape(s string) (string, error) {
	var buf strings.Builder
	if err := xml.EscapeText(&buf, []byte(s)); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderTemplate(name, text string, data any) (string, error) {
	tpl, err := template.New(name).Funcs(templateFuncs).Parse(text)
	if err != nil {
		return "", fmt.Errorf("unable to parse the %s template: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("unable to render the %s template: %w", name, err)
	}
	return buf.String(), nil
}

type DCCTemplateData struct {
	Created   string
	Title     string
	Presenter string
	SeriesID  string
}

func RenderDCC(tplText string, data DCCTemplateData) (string, error) {
	if tplText == "" {
		tplText = DefaultDCCTemplate
	}
	return renderTemplate("dcc", tplText, data)
}

type ACLRule struct {
	Role   string
	Action string
}

type ACLTemplateData struct {
	UserRole string
	Roles    []string
	Rules    []ACLRule
}

// NewACLTemplateData grants read and write access to the user's own role and
// to the administrators.
func NewACLTemplateData(me *Me) ACLTemplateData {
	data := ACLTemplateData{
		UserRole: me.UserRole,
		Roles:    me.Roles,
	}
	for _, role := range []string{me.UserRole, RoleAdmin} {
		if role == "" {
			continue
		}
		if len(data.Rules) > 0 && data.Rules[0].Role == role {
			continue
		}
		data.Rules = append(data.Rules,
			ACLRule{Role: role, Action: "read"},
			ACLRule{Role: role, Action: "write"},
		)
	}
	return data
}

func RenderACL(tplText string, data ACLTemplateData) (string, error) {
	if tplText == "" {
		tplText = DefaultACLTemplate
	}
	return renderTemplate("acl", tplText, data)
}

// RenderCutting renders the SMIL catalog selecting the part of the
// recordings to keep; unset boundaries default to the whole recording.
func RenderCutting(start, end *time.Duration) (string, error) {
	startValue := time.Duration(0)
	if start != nil {
		startValue = *start
	}
	endValue := CutEndSentinel
	if end != nil {
		endValue = *end
	}
	return renderTemplate("cutting", cuttingTemplate, struct {
		Start string
		End   string
	}{
		Start: formatSeconds(startValue),
		End:   formatSeconds(endValue),
	})
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
