package types

const (
	SubProtocol201 = "ocpp2.0.1"
	V2Subprotocol  = SubProtocol201
)

type AuthorizationStatus string

const (
	AuthorizationStatusAccepted           AuthorizationStatus = "Accepted"
	AuthorizationStatusBlocked            AuthorizationStatus = "Blocked"
	AuthorizationStatusConcurrentTx       AuthorizationStatus = "ConcurrentTx"
	AuthorizationStatusExpired            AuthorizationStatus = "Expired"
	AuthorizationStatusInvalid            AuthorizationStatus = "Invalid"
	AuthorizationStatusNoCredit           AuthorizationStatus = "NoCredit"
	AuthorizationStatusNotAllowedTypeEVSE AuthorizationStatus = "NotAllowedTypeEVSE"
	AuthorizationStatusNotAtThisLocation  AuthorizationStatus = "NotAtThisLocation"
	AuthorizationStatusNotAtThisTime      AuthorizationStatus = "NotAtThisTime"
	AuthorizationStatusUnknown            AuthorizationStatus = "Unknown"
)

type IdTokenType string

const (
	IdTokenTypeCentral         IdTokenType = "Central"
	IdTokenTypeEMAID           IdTokenType = "eMAID"
	IdTokenTypeISO14443        IdTokenType = "ISO14443"
	IdTokenTypeISO15693        IdTokenType = "ISO15693"
	IdTokenTypeKeyCode         IdTokenType = "KeyCode"
	IdTokenTypeLocal           IdTokenType = "Local"
	IdTokenTypeMacAddress      IdTokenType = "MacAddress"
	IdTokenTypeNoAuthorization IdTokenType = "NoAuthorization"
)

type AdditionalInfo struct {
	AdditionalIdToken string `json:"additionalIdToken" validate:"required,max=36"`
	Type              string `json:"type" validate:"required,max=50"`
}

type IdToken struct {
	IdToken        string           `json:"idToken" validate:"max=36"`
	Type           IdTokenType      `json:"type" validate:"required,idTokenType"`
	AdditionalInfo []AdditionalInfo `json:"additionalInfo,omitempty" validate:"omitempty,dive"`
}

type GroupIdToken struct {
	IdToken string      `json:"idToken" validate:"required,max=36"`
	Type    IdTokenType `json:"type" validate:"required,idTokenType"`
}

type MessageFormatType string

const (
	MessageFormatASCII MessageFormatType = "ASCII"
	MessageFormatHTML  MessageFormatType = "HTML"
	MessageFormatURI   MessageFormatType = "URI"
	MessageFormatUTF8  MessageFormatType = "UTF8"
)

type MessageContent struct {
	Format   MessageFormatType `json:"format" validate:"required,messageFormat"`
	Language string            `json:"language,omitempty" validate:"omitempty,max=8"`
	Content  string            `json:"content" validate:"required,max=512"`
}

type IdTokenInfo struct {
	Status              AuthorizationStatus `json:"status" validate:"required,authorizationStatus"`
	CacheExpiryDateTime *DateTime           `json:"cacheExpiryDateTime,omitempty"`
	ChargingPriority    int                 `json:"chargingPriority,omitempty" validate:"omitempty,gte=-9,lte=9"`
	Language1           string              `json:"language1,omitempty" validate:"omitempty,max=8"`
	Language2           string              `json:"language2,omitempty" validate:"omitempty,max=8"`
	EvseId              []int               `json:"evseId,omitempty"`
	GroupIdToken        *GroupIdToken       `json:"groupIdToken,omitempty"`
	PersonalMessage     *MessageContent     `json:"personalMessage,omitempty"`
}

func NewIdTokenInfo(status AuthorizationStatus) *IdTokenInfo {
	return &IdTokenInfo{Status: status}
}

type StatusInfo struct {
	ReasonCode     string `json:"reasonCode" validate:"required,max=20"`
	AdditionalInfo string `json:"additionalInfo,omitempty" validate:"omitempty,max=512"`
}

func NewStatusInfo(reasonCode, additionalInfo string) *StatusInfo {
	return &StatusInfo{ReasonCode: reasonCode, AdditionalInfo: additionalInfo}
}

type GenericStatus string

const (
	GenericStatusAccepted GenericStatus = "Accepted"
	GenericStatusRejected GenericStatus = "Rejected"
)

type GenericDeviceModelStatus string

const (
	GenericDeviceModelStatusAccepted       GenericDeviceModelStatus = "Accepted"
	GenericDeviceModelStatusRejected       GenericDeviceModelStatus = "Rejected"
	GenericDeviceModelStatusNotSupported   GenericDeviceModelStatus = "NotSupported"
	GenericDeviceModelStatusEmptyResultSet GenericDeviceModelStatus = "EmptyResultSet"
)

// EVSE identifies a logical outlet; id 0 addresses the whole station.
type EVSE struct {
	Id          int  `json:"id" validate:"gte=0"`
	ConnectorId *int `json:"connectorId,omitempty" validate:"omitempty,gte=0"`
}

type Component struct {
	Name     string `json:"name" validate:"required,max=50"`
	Instance string `json:"instance,omitempty" validate:"omitempty,max=50"`
	EVSE     *EVSE  `json:"evse,omitempty"`
}

type Variable struct {
	Name     string `json:"name" validate:"required,max=50"`
	Instance string `json:"instance,omitempty" validate:"omitempty,max=50"`
}

type ComponentVariable struct {
	Component Component `json:"component" validate:"required"`
	Variable  Variable  `json:"variable" validate:"required"`
}

type AttributeType string

const (
	AttributeActual AttributeType = "Actual"
	AttributeTarget AttributeType = "Target"
	AttributeMinSet AttributeType = "MinSet"
	AttributeMaxSet AttributeType = "MaxSet"
)

type MutabilityType string

const (
	MutabilityReadOnly  MutabilityType = "ReadOnly"
	MutabilityWriteOnly MutabilityType = "WriteOnly"
	MutabilityReadWrite MutabilityType = "ReadWrite"
)

type DataType string

const (
	DataTypeString       DataType = "string"
	DataTypeDecimal      DataType = "decimal"
	DataTypeInteger      DataType = "integer"
	DataTypeDateTime     DataType = "dateTime"
	DataTypeBoolean      DataType = "boolean"
	DataTypeOptionList   DataType = "OptionList"
	DataTypeSequenceList DataType = "SequenceList"
	DataTypeMemberList   DataType = "MemberList"
)

// Metering

type ReadingContext string
type Measurand string
type Phase string
type Location string

const (
	ReadingContextInterruptionBegin ReadingContext = "Interruption.Begin"
	ReadingContextInterruptionEnd   ReadingContext = "Interruption.End"
	ReadingContextOther             ReadingContext = "Other"
	ReadingContextSampleClock       ReadingContext = "Sample.Clock"
	ReadingContextSamplePeriodic    ReadingContext = "Sample.Periodic"
	ReadingContextTransactionBegin  ReadingContext = "Transaction.Begin"
	ReadingContextTransactionEnd    ReadingContext = "Transaction.End"
	ReadingContextTrigger           ReadingContext = "Trigger"

	MeasurandCurrentExport              Measurand = "Current.Export"
	MeasurandCurrentImport              Measurand = "Current.Import"
	MeasurandCurrentOffered             Measurand = "Current.Offered"
	MeasurandEnergyActiveExportRegister Measurand = "Energy.Active.Export.Register"
	MeasurandEnergyActiveImportRegister Measurand = "Energy.Active.Import.Register"
	MeasurandEnergyActiveImportInterval Measurand = "Energy.Active.Import.Interval"
	MeasurandEnergyActiveNet            Measurand = "Energy.Active.Net"
	MeasurandEnergyReactiveNet          Measurand = "Energy.Reactive.Net"
	MeasurandEnergyApparentNet          Measurand = "Energy.Apparent.Net"
	MeasurandFrequency                  Measurand = "Frequency"
	MeasurandPowerActiveExport          Measurand = "Power.Active.Export"
	MeasurandPowerActiveImport          Measurand = "Power.Active.Import"
	MeasurandPowerFactor                Measurand = "Power.Factor"
	MeasurandPowerOffered               Measurand = "Power.Offered"
	MeasurandPowerReactiveExport        Measurand = "Power.Reactive.Export"
	MeasurandPowerReactiveImport        Measurand = "Power.Reactive.Import"
	MeasurandSoC                        Measurand = "SoC"
	MeasurandVoltage                    Measurand = "Voltage"

	PhaseL1   Phase = "L1"
	PhaseL2   Phase = "L2"
	PhaseL3   Phase = "L3"
	PhaseN    Phase = "N"
	PhaseL1N  Phase = "L1-N"
	PhaseL2N  Phase = "L2-N"
	PhaseL3N  Phase = "L3-N"
	PhaseL1L2 Phase = "L1-L2"
	PhaseL2L3 Phase = "L2-L3"
	PhaseL3L1 Phase = "L3-L1"

	LocationBody   Location = "Body"
	LocationCable  Location = "Cable"
	LocationEV     Location = "EV"
	LocationInlet  Location = "Inlet"
	LocationOutlet Location = "Outlet"
)

type UnitOfMeasure struct {
	Unit       string `json:"unit,omitempty" validate:"omitempty,max=20"`
	Multiplier *int   `json:"multiplier,omitempty"`
}

type SignedMeterValue struct {
	SignedMeterData string `json:"signedMeterData" validate:"required,max=2500"`
	SigningMethod   string `json:"signingMethod" validate:"required,max=50"`
	EncodingMethod  string `json:"encodingMethod" validate:"required,max=50"`
	PublicKey       string `json:"publicKey" validate:"required,max=2500"`
}

type SampledValue struct {
	Value            float64           `json:"value"`
	Context          ReadingContext    `json:"context,omitempty" validate:"omitempty,readingContext"`
	Measurand        Measurand         `json:"measurand,omitempty" validate:"omitempty,measurand"`
	Phase            Phase             `json:"phase,omitempty" validate:"omitempty,phase"`
	Location         Location          `json:"location,omitempty" validate:"omitempty,location"`
	SignedMeterValue *SignedMeterValue `json:"signedMeterValue,omitempty"`
	UnitOfMeasure    *UnitOfMeasure    `json:"unitOfMeasure,omitempty"`
}

type MeterValue struct {
	Timestamp    *DateTime      `json:"timestamp" validate:"required"`
	SampledValue []SampledValue `json:"sampledValue" validate:"required,min=1,dive"`
}

// Charging profiles

type ChargingProfilePurposeType string
type ChargingProfileKindType string
type RecurrencyKindType string
type ChargingRateUnitType string

const (
	ChargingProfilePurposeChargingStationExternalConstraints ChargingProfilePurposeType = "ChargingStationExternalConstraints"
	ChargingProfilePurposeChargePointMaxProfile              ChargingProfilePurposeType = "ChargingStationMaxProfile"
	ChargingProfilePurposeTxDefaultProfile                   ChargingProfilePurposeType = "TxDefaultProfile"
	ChargingProfilePurposeTxProfile                          ChargingProfilePurposeType = "TxProfile"

	ChargingProfileKindAbsolute  ChargingProfileKindType = "Absolute"
	ChargingProfileKindRecurring ChargingProfileKindType = "Recurring"
	ChargingProfileKindRelative  ChargingProfileKindType = "Relative"

	RecurrencyKindDaily  RecurrencyKindType = "Daily"
	RecurrencyKindWeekly RecurrencyKindType = "Weekly"

	ChargingRateUnitWatts   ChargingRateUnitType = "W"
	ChargingRateUnitAmperes ChargingRateUnitType = "A"
)

type ChargingSchedulePeriod struct {
	StartPeriod  int     `json:"startPeriod" validate:"gte=0"`
	Limit        float64 `json:"limit" validate:"gte=0"`
	NumberPhases *int    `json:"numberPhases,omitempty" validate:"omitempty,gte=0"`
	PhaseToUse   *int    `json:"phaseToUse,omitempty" validate:"omitempty,gte=0"`
}

func NewChargingSchedulePeriod(startPeriod int, limit float64) ChargingSchedulePeriod {
	return ChargingSchedulePeriod{StartPeriod: startPeriod, Limit: limit}
}

type ChargingSchedule struct {
	Id                     int                      `json:"id" validate:"gte=0"`
	StartSchedule          *DateTime                `json:"startSchedule,omitempty"`
	Duration               *int                     `json:"duration,omitempty" validate:"omitempty,gte=0"`
	ChargingRateUnit       ChargingRateUnitType     `json:"chargingRateUnit" validate:"required,chargingRateUnit"`
	MinChargingRate        *float64                 `json:"minChargingRate,omitempty" validate:"omitempty,gte=0"`
	ChargingSchedulePeriod []ChargingSchedulePeriod `json:"chargingSchedulePeriod" validate:"required,min=1,max=1024,dive"`
}

type ChargingProfile struct {
	Id                     int                        `json:"id" validate:"gte=0"`
	StackLevel             int                        `json:"stackLevel" validate:"gte=0"`
	ChargingProfilePurpose ChargingProfilePurposeType `json:"chargingProfilePurpose" validate:"required,chargingProfilePurpose"`
	ChargingProfileKind    ChargingProfileKindType    `json:"chargingProfileKind" validate:"required,chargingProfileKind"`
	RecurrencyKind         RecurrencyKindType         `json:"recurrencyKind,omitempty" validate:"omitempty,recurrencyKind"`
	ValidFrom              *DateTime                  `json:"validFrom,omitempty"`
	ValidTo                *DateTime                  `json:"validTo,omitempty"`
	TransactionId          string                     `json:"transactionId,omitempty" validate:"omitempty,max=36"`
	ChargingSchedule       []ChargingSchedule         `json:"chargingSchedule" validate:"required,min=1,max=3,dive"`
}

type CompositeSchedule struct {
	EvseId                 int                      `json:"evseId" validate:"gte=0"`
	Duration               int                      `json:"duration"`
	ScheduleStart          *DateTime                `json:"scheduleStart" validate:"required"`
	ChargingRateUnit       ChargingRateUnitType     `json:"chargingRateUnit" validate:"required,chargingRateUnit"`
	ChargingSchedulePeriod []ChargingSchedulePeriod `json:"chargingSchedulePeriod" validate:"required,min=1,dive"`
}

// Certificates

type HashAlgorithmType string

const (
	SHA256 HashAlgorithmType = "SHA256"
	SHA384 HashAlgorithmType = "SHA384"
	SHA512 HashAlgorithmType = "SHA512"
)

type CertificateHashData struct {
	HashAlgorithm  HashAlgorithmType `json:"hashAlgorithm" validate:"required,hashAlgorithm"`
	IssuerNameHash string            `json:"issuerNameHash" validate:"required,max=128"`
	IssuerKeyHash  string            `json:"issuerKeyHash" validate:"required,max=128"`
	SerialNumber   string            `json:"serialNumber" validate:"required,max=40"`
}

type OCSPRequestData struct {
	HashAlgorithm  HashAlgorithmType `json:"hashAlgorithm" validate:"required,hashAlgorithm"`
	IssuerNameHash string            `json:"issuerNameHash" validate:"required,max=128"`
	IssuerKeyHash  string            `json:"issuerKeyHash" validate:"required,max=128"`
	SerialNumber   string            `json:"serialNumber" validate:"required,max=40"`
	ResponderURL   string            `json:"responderURL,omitempty" validate:"omitempty,max=512"`
}

type GetCertificateIdUseType string

const (
	V2GRootCertificate          GetCertificateIdUseType = "V2GRootCertificate"
	MORootCertificate           GetCertificateIdUseType = "MORootCertificate"
	CSMSRootCertificate         GetCertificateIdUseType = "CSMSRootCertificate"
	V2GCertificateChain         GetCertificateIdUseType = "V2GCertificateChain"
	ManufacturerRootCertificate GetCertificateIdUseType = "ManufacturerRootCertificate"
)

type InstallCertificateUseType string

const (
	InstallV2GRootCertificate          InstallCertificateUseType = "V2GRootCertificate"
	InstallMORootCertificate           InstallCertificateUseType = "MORootCertificate"
	InstallCSMSRootCertificate         InstallCertificateUseType = "CSMSRootCertificate"
	InstallManufacturerRootCertificate InstallCertificateUseType = "ManufacturerRootCertificate"
)
