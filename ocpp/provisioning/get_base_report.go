package provisioning

import (
	"reflect"

	"evcp/ocpp/types"

	"github.com/go-playground/validator/v10"
)

const GetBaseReportFeatureName = "GetBaseReport"

type ReportBase string

const (
	ReportBaseConfigurationInventory ReportBase = "ConfigurationInventory"
	ReportBaseFullInventory          ReportBase = "FullInventory"
	ReportBaseSummaryInventory       ReportBase = "SummaryInventory"
)

func isValidReportBase(fl validator.FieldLevel) bool {
	switch ReportBase(fl.Field().String()) {
	case ReportBaseConfigurationInventory, ReportBaseFullInventory, ReportBaseSummaryInventory:
		return true
	default:
		return false
	}
}

type GetBaseReportRequest struct {
	RequestId  int        `json:"requestId" validate:"gte=0"`
	ReportBase ReportBase `json:"reportBase" validate:"required,reportBase"`
}

type GetBaseReportResponse struct {
	Status     types.GenericDeviceModelStatus `json:"status" validate:"required,genericDeviceModelStatus"`
	StatusInfo *types.StatusInfo              `json:"statusInfo,omitempty"`
}

type GetBaseReportFeature struct{}

func (f GetBaseReportFeature) GetFeatureName() string {
	return GetBaseReportFeatureName
}

func (f GetBaseReportFeature) GetRequestType() reflect.Type {
	return reflect.TypeOf(GetBaseReportRequest{})
}

func (f GetBaseReportFeature) GetResponseType() reflect.Type {
	return reflect.TypeOf(GetBaseReportResponse{})
}

func (r GetBaseReportRequest) GetFeatureName() string {
	return GetBaseReportFeatureName
}

func (c GetBaseReportResponse) GetFeatureName() string {
	return GetBaseReportFeatureName
}

func NewGetBaseReportResponse(status types.GenericDeviceModelStatus) *GetBaseReportResponse {
	return &GetBaseReportResponse{Status: status}
}

func isValidGenericDeviceModelStatus(fl validator.FieldLevel) bool {
	switch types.GenericDeviceModelStatus(fl.Field().String()) {
	case types.GenericDeviceModelStatusAccepted, types.GenericDeviceModelStatusRejected,
		types.GenericDeviceModelStatusNotSupported, types.GenericDeviceModelStatusEmptyResultSet:
		return true
	default:
		return false
	}
}

func init() {
	_ = types.Validate.RegisterValidation("reportBase", isValidReportBase)
	_ = types.Validate.RegisterValidation("genericDeviceModelStatus", isValidGenericDeviceModelStatus)
}
