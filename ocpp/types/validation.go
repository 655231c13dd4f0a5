package types

import (
	"github.com/go-playground/validator/v10"
)

// Validate is the shared validator for all OCPP payloads. Feature
// packages register their own enum tags in init().
var Validate = validator.New()

func isValidIdTokenType(fl validator.FieldLevel) bool {
	switch IdTokenType(fl.Field().String()) {
	case IdTokenTypeCentral, IdTokenTypeEMAID, IdTokenTypeISO14443, IdTokenTypeISO15693,
		IdTokenTypeKeyCode, IdTokenTypeLocal, IdTokenTypeMacAddress, IdTokenTypeNoAuthorization:
		return true
	default:
		return false
	}
}

func isValidAuthorizationStatus(fl validator.FieldLevel) bool {
	switch AuthorizationStatus(fl.Field().String()) {
	case AuthorizationStatusAccepted, AuthorizationStatusBlocked, AuthorizationStatusConcurrentTx,
		AuthorizationStatusExpired, AuthorizationStatusInvalid, AuthorizationStatusNoCredit,
		AuthorizationStatusNotAllowedTypeEVSE, AuthorizationStatusNotAtThisLocation,
		AuthorizationStatusNotAtThisTime, AuthorizationStatusUnknown:
		return true
	default:
		return false
	}
}

func isValidMessageFormat(fl validator.FieldLevel) bool {
	switch MessageFormatType(fl.Field().String()) {
	case MessageFormatASCII, MessageFormatHTML, MessageFormatURI, MessageFormatUTF8:
		return true
	default:
		return false
	}
}

func isValidReadingContext(fl validator.FieldLevel) bool {
	switch ReadingContext(fl.Field().String()) {
	case ReadingContextInterruptionBegin, ReadingContextInterruptionEnd, ReadingContextOther,
		ReadingContextSampleClock, ReadingContextSamplePeriodic, ReadingContextTransactionBegin,
		ReadingContextTransactionEnd, ReadingContextTrigger:
		return true
	default:
		return false
	}
}

func isValidMeasurand(fl validator.FieldLevel) bool {
	switch Measurand(fl.Field().String()) {
	case MeasurandCurrentExport, MeasurandCurrentImport, MeasurandCurrentOffered,
		MeasurandEnergyActiveExportRegister, MeasurandEnergyActiveImportRegister,
		MeasurandEnergyActiveImportInterval, MeasurandEnergyActiveNet, MeasurandEnergyReactiveNet,
		MeasurandEnergyApparentNet, MeasurandFrequency, MeasurandPowerActiveExport,
		MeasurandPowerActiveImport, MeasurandPowerFactor, MeasurandPowerOffered,
		MeasurandPowerReactiveExport, MeasurandPowerReactiveImport, MeasurandSoC, MeasurandVoltage:
		return true
	default:
		return false
	}
}

func isValidPhase(fl validator.FieldLevel) bool {
	switch Phase(fl.Field().String()) {
	case PhaseL1, PhaseL2, PhaseL3, PhaseN, PhaseL1N, PhaseL2N, PhaseL3N, PhaseL1L2, PhaseL2L3, PhaseL3L1:
		return true
	default:
		return false
	}
}

func isValidLocation(fl validator.FieldLevel) bool {
	switch Location(fl.Field().String()) {
	case LocationBody, LocationCable, LocationEV, LocationInlet, LocationOutlet:
		return true
	default:
		return false
	}
}

func isValidChargingProfilePurpose(fl validator.FieldLevel) bool {
	switch ChargingProfilePurposeType(fl.Field().String()) {
	case ChargingProfilePurposeChargingStationExternalConstraints, ChargingProfilePurposeChargePointMaxProfile,
		ChargingProfilePurposeTxDefaultProfile, ChargingProfilePurposeTxProfile:
		return true
	default:
		return false
	}
}

func isValidChargingProfileKind(fl validator.FieldLevel) bool {
	switch ChargingProfileKindType(fl.Field().String()) {
	case ChargingProfileKindAbsolute, ChargingProfileKindRecurring, ChargingProfileKindRelative:
		return true
	default:
		return false
	}
}

func isValidRecurrencyKind(fl validator.FieldLevel) bool {
	switch RecurrencyKindType(fl.Field().String()) {
	case RecurrencyKindDaily, RecurrencyKindWeekly:
		return true
	default:
		return false
	}
}

func isValidChargingRateUnit(fl validator.FieldLevel) bool {
	switch ChargingRateUnitType(fl.Field().String()) {
	case ChargingRateUnitWatts, ChargingRateUnitAmperes:
		return true
	default:
		return false
	}
}

func isValidHashAlgorithm(fl validator.FieldLevel) bool {
	switch HashAlgorithmType(fl.Field().String()) {
	case SHA256, SHA384, SHA512:
		return true
	default:
		return false
	}
}

func isValidAttributeType(fl validator.FieldLevel) bool {
	switch AttributeType(fl.Field().String()) {
	case AttributeActual, AttributeTarget, AttributeMinSet, AttributeMaxSet:
		return true
	default:
		return false
	}
}

func isValidMutabilityType(fl validator.FieldLevel) bool {
	switch MutabilityType(fl.Field().String()) {
	case MutabilityReadOnly, MutabilityWriteOnly, MutabilityReadWrite:
		return true
	default:
		return false
	}
}

func isValidDataType(fl validator.FieldLevel) bool {
	switch DataType(fl.Field().String()) {
	case DataTypeString, DataTypeDecimal, DataTypeInteger, DataTypeDateTime, DataTypeBoolean,
		DataTypeOptionList, DataTypeSequenceList, DataTypeMemberList:
		return true
	default:
		return false
	}
}

func init() {
	_ = Validate.RegisterValidation("idTokenType", isValidIdTokenType)
	_ = Validate.RegisterValidation("authorizationStatus", isValidAuthorizationStatus)
	_ = Validate.RegisterValidation("messageFormat", isValidMessageFormat)
	_ = Validate.RegisterValidation("readingContext", isValidReadingContext)
	_ = Validate.RegisterValidation("measurand", isValidMeasurand)
	_ = Validate.RegisterValidation("phase", isValidPhase)
	_ = Validate.RegisterValidation("location", isValidLocation)
	_ = Validate.RegisterValidation("chargingProfilePurpose", isValidChargingProfilePurpose)
	_ = Validate.RegisterValidation("chargingProfileKind", isValidChargingProfileKind)
	_ = Validate.RegisterValidation("recurrencyKind", isValidRecurrencyKind)
	_ = Validate.RegisterValidation("chargingRateUnit", isValidChargingRateUnit)
	_ = Validate.RegisterValidation("hashAlgorithm", isValidHashAlgorithm)
	_ = Validate.RegisterValidation("attributeType", isValidAttributeType)
	_ = Validate.RegisterValidation("mutabilityType", isValidMutabilityType)
	_ = Validate.RegisterValidation("dataType", isValidDataType)
}
