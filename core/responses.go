package core

// Response envelopes shared by every resource endpoint: detail payloads
// are wrapped as {data: ...}, list payloads as {results: [...], meta: {...}}.

type DataResponse struct {
	Data interface{} `json:"data"`
}

type ListResponse struct {
	Results interface{} `json:"results"`
	Meta    Meta        `json:"meta"`
}

func NewDataResponse(data interface{}) DataResponse {
	return DataResponse{Data: data}
}

func NewListResponse(results interface{}, meta Meta) ListResponse {
	return ListResponse{Results: results, Meta: meta}
}
