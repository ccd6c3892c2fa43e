package adapters

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/rs/zerolog/log"

	"pipkit/internal/ports"
	"pipkit/internal/shared"
	"pipkit/internal/types"
)

const xmlrpcContentType = "text/xml"

// XMLRPCSearchAdapter queries the legacy XML-RPC search method of a
// package index.
type XMLRPCSearchAdapter struct {
	HTTP HTTPOptions
}

func NewXMLRPCSearchAdapter(opts HTTPOptions) XMLRPCSearchAdapter {
	return XMLRPCSearchAdapter{HTTP: opts}
}

type xmlrpcValue struct {
	String *string       `xml:"string,omitempty"`
	Int    *string       `xml:"int,omitempty"`
	I4     *string       `xml:"i4,omitempty"`
	Struct *xmlrpcStruct `xml:"struct,omitempty"`
	Array  *xmlrpcArray  `xml:"array,omitempty"`
	Nil    *struct{}     `xml:"nil,omitempty"`
	Text   string        `xml:",chardata"`
}

type xmlrpcStruct struct {
	Members []xmlrpcMember `xml:"member"`
}

type xmlrpcMember struct {
	Name  string      `xml:"name"`
	Value xmlrpcValue `xml:"value"`
}

type xmlrpcArray struct {
	Values []xmlrpcValue `xml:"data>value"`
}

type xmlrpcParam struct {
	Value xmlrpcValue `xml:"value"`
}

type xmlrpcMethodCall struct {
	XMLName    xml.Name      `xml:"methodCall"`
	MethodName string        `xml:"methodName"`
	Params     []xmlrpcParam `xml:"params>param"`
}

type xmlrpcMethodResponse struct {
	XMLName xml.Name      `xml:"methodResponse"`
	Params  []xmlrpcParam `xml:"params>param"`
	Fault   *xmlrpcValue  `xml:"fault>value"`
}

func xmlrpcString(value string) xmlrpcValue {
	return xmlrpcValue{String: &value}
}

func (v xmlrpcValue) scalar() string {
	switch {
	case v.String != nil:
		return *v.String
	case v.Int != nil:
		return strings.TrimSpace(*v.Int)
	case v.I4 != nil:
		return strings.TrimSpace(*v.I4)
	case v.Nil != nil:
		return ""
	}
	return strings.TrimSpace(v.Text)
}

func (v xmlrpcValue) member(name string) (xmlrpcValue, bool) {
	if v.Struct == nil {
		return xmlrpcValue{}, false
	}
	for _, member := range v.Struct.Members {
		if member.Name == name {
			return member.Value, true
		}
	}
	return xmlrpcValue{}, false
}

// encodeSearchCall builds search({'name': terms, 'summary': terms}, 'or').
func encodeSearchCall(terms []string) ([]byte, error) {
	values := make([]xmlrpcValue, 0, len(terms))
	for _, term := range terms {
		values = append(values, xmlrpcString(term))
	}
	query := xmlrpcValue{Struct: &xmlrpcStruct{Members: []xmlrpcMember{
		{Name: "name", Value: xmlrpcValue{Array: &xmlrpcArray{Values: values}}},
		{Name: "summary", Value: xmlrpcValue{Array: &xmlrpcArray{Values: values}}},
	}}}
	call := xmlrpcMethodCall{
		MethodName: "search",
		Params:     []xmlrpcParam{{Value: query}, {Value: xmlrpcString("or")}},
	}
	body, err := xml.Marshal(call)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

func decodeSearchResponse(data []byte) ([]types.SearchHit, error) {
	var response xmlrpcMethodResponse
	if err := xml.Unmarshal(data, &response); err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to decode XML-RPC response").
			WithCause(err)
	}
	if response.Fault != nil {
		code, _ := response.Fault.member("faultCode")
		message, _ := response.Fault.member("faultString")
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg(fmt.Sprintf("XMLRPC request failed [code: %s]\n%s", code.scalar(), message.scalar()))
	}
	if len(response.Params) == 0 || response.Params[0].Value.Array == nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("XML-RPC search response is not a list")
	}
	results := response.Params[0].Value.Array.Values
	hits := make([]types.SearchHit, 0, len(results))
	for _, value := range results {
		name, _ := value.member("name")
		summary, _ := value.member("summary")
		version, _ := value.member("version")
		hits = append(hits, types.SearchHit{
			Name:    name.scalar(),
			Summary: summary.scalar(),
			Version: version.scalar(),
		})
	}
	return hits, nil
}

func (a XMLRPCSearchAdapter) Search(ctx context.Context, indexURL string, terms []string) ([]types.SearchHit, error) {
	body, err := encodeSearchCall(terms)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to encode XML-RPC request").
			WithCause(err)
	}
	resp, err := doRequest(ctx, httpRequest{
		method:      http.MethodPost,
		url:         indexURL,
		body:        body,
		contentType: xmlrpcContentType,
	}, normalizeHTTPConfig(a.HTTP))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errbuilder.New().
			WithCode(httpStatusCode(resp.StatusCode)).
			WithMsg("search request failed").
			WithCause(shared.HTTPStatusError(resp.StatusCode, indexURL))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to read search response").
			WithCause(err)
	}
	hits, err := decodeSearchResponse(data)
	if err != nil {
		return nil, err
	}
	log.Ctx(ctx).Debug().Str("index", indexURL).Int("hits", len(hits)).Msg("search completed")
	return hits, nil
}

var _ ports.SearchIndexPort = XMLRPCSearchAdapter{}
