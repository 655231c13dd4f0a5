package display

import (
	"reflect"
)

const CostUpdatedFeatureName = "CostUpdated"

type CostUpdatedRequest struct {
	TotalCost     float64 `json:"totalCost"`
	TransactionId string  `json:"transactionId" validate:"required,max=36"`
}

type CostUpdatedResponse struct {
}

type CostUpdatedFeature struct{}

func (f CostUpdatedFeature) GetFeatureName() string {
	return CostUpdatedFeatureName
}

func (f CostUpdatedFeature) GetRequestType() reflect.Type {
	return reflect.TypeOf(CostUpdatedRequest{})
}

func (f CostUpdatedFeature) GetResponseType() reflect.Type {
	return reflect.TypeOf(CostUpdatedResponse{})
}

func (r CostUpdatedRequest) GetFeatureName() string {
	return CostUpdatedFeatureName
}

func (c CostUpdatedResponse) GetFeatureName() string {
	return CostUpdatedFeatureName
}

func NewCostUpdatedResponse() *CostUpdatedResponse {
	return &CostUpdatedResponse{}
}
