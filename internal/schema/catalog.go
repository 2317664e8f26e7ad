// Package schema holds the fixed catalog of extraction sections. Each
// section pairs a nested JSON template with the instruction used to fill it.
// The catalog's size and ordering are stable across runs: the section index
// is the addressing key for merged results, so entries must never be
// reordered or removed, only appended.
package schema

import (
	"encoding/json"
	"fmt"
)

// Section is one independently-extracted area of the composite record.
type Section struct {
	Name        string
	Template    json.RawMessage
	Instruction string
}

const strictFillInstruction = `Return only the filled JSON object with all keys present. If a detail is not available, set its value to null. Do not include any introductory text or explanations.`

var catalog = []Section{
	{
		Name: "patientInformation",
		Template: json.RawMessage(`{
  "patientInformation": {
    "fullName": "",
    "dateOfBirth": "",
    "gender": "",
    "address": {
      "streetNumber": "",
      "streetName": "",
      "apartmentUnitNumber": "",
      "city": "",
      "state": "",
      "zipCode": ""
    },
    "contactInformation": {
      "emergencyContact": "",
      "primaryContact": "",
      "homePhone": "",
      "mobilePhone": ""
    },
    "advancedDirective": "",
    "insuranceInformation": {
      "primaryInsurance": {
        "providerName": "",
        "policyInsuranceHolder": "",
        "planDetails": "",
        "policyNumber": "",
        "groupNumber": "",
        "contactDetails": ""
      },
      "secondaryInsurance": {
        "providerName": "",
        "policyInsuranceHolder": "",
        "planDetails": "",
        "policyNumber": "",
        "groupNumber": "",
        "contactDetails": ""
      }
    }
  }
}`),
		Instruction: strictFillInstruction + "\nGet the answer for each value. Get the correct answer for each of the keys.",
	},
	{
		Name: "reasonForReferral",
		Template: json.RawMessage(`{
  "reasonForReferral": {
    "detailedDescription": ""
  }
}`),
		Instruction: strictFillInstruction + "\nGet the answer for each value.",
	},
	{
		Name: "requestedServices",
		Template: json.RawMessage(`{
  "requestedServices": {
    "specificServicesRequested": [
      "Skilled Nursing",
      "Physical Therapy (PT)",
      "Occupational Therapy (OT)",
      "Speech Therapy (ST)",
      "Home Health Aide (HHA)",
      "Medical Social Worker (MSW)"
    ]
  }
}`),
		Instruction: strictFillInstruction + "\nOnly return the services actually requested in the context.",
	},
	{
		Name: "sourceOfReferral",
		Template: json.RawMessage(`{
  "sourceOfReferral": {
    "referringPhysicianProvider": {
      "name": "",
      "address": {
        "streetNumber": "",
        "streetName": "",
        "suiteNumber": "",
        "city": "",
        "state": "",
        "zipCode": ""
      },
      "contactInformation": {
        "phoneNumber": "",
        "faxNumber": "",
        "emailAddress": ""
      }
    }
  }
}`),
		Instruction: "Get the provider's full address and answer from that only.\n" + strictFillInstruction + "\nGet the answer for each value.",
	},
	{
		Name: "clinicalHistory",
		Template: json.RawMessage(`{
  "clinicalHistory": {
    "comprehensiveMedicalHistory": {
      "currentDiagnoses": [
        {
          "description": "",
          "icd10Code": "",
          "onsetDate": ""
        }
      ],
      "pastDiagnoses": [
        {
          "description": "",
          "icd10Code": ""
        }
      ],
      "recentSurgeries": [
        {
          "name": "",
          "dateYear": ""
        }
      ],
      "patientsPharmacy": [
        {
          "name": "",
          "phoneNumber": "",
          "address": {
            "streetNumber": "",
            "streetName": "",
            "suiteNumber": "",
            "city": "",
            "state": "",
            "zipCode": ""
          }
        }
      ],
      "relevantLabResults": [],
      "imagingReports": [],
      "diagnosticStudies": []
    }
  }
}`),
		Instruction: strictFillInstruction + "\nGet the correct answer for each value.",
	},
	{
		Name: "currentMedicalStatusHPI",
		Template: json.RawMessage(`{
  "currentMedicalStatusHPI": {
    "summary": {
      "allergies": [],
      "vitalSigns": {
        "bloodPressure": "",
        "heartRate": "",
        "oxygenSaturation": "",
        "temperature": "",
        "weight": "",
        "height": ""
      },
      "recentInpatientFacility": {
        "dateOfDischarge": "",
        "facilityType": "",
        "acuteChronicIssues": ""
      },
      "functionalPrecautions": ""
    }
  }
}`),
		Instruction: strictFillInstruction + "\nGet the answer for each value.",
	},
	{
		Name: "functionalStatus",
		Template: json.RawMessage(`{
  "functionalStatus": {
    "mobility": {
      "abilityToWalkOrTransfer": "",
      "assistanceNeeded": "",
      "assistiveDevices": []
    },
    "activitiesOfDailyLivingADLs": {
      "assistanceNeeded": {
        "dressing": "",
        "bathing": "",
        "toileting": "",
        "feeding": ""
      }
    }
  }
}`),
		Instruction: strictFillInstruction + "\nGet the answer for each value.",
	},
	{
		Name: "homeEnvironment",
		Template: json.RawMessage(`{
  "homeEnvironment": {
    "safetyConcerns": "",
    "primaryCaregiverAvailability": {
      "caregiverName": "",
      "frequencyOfSupport": "",
      "typeOfSupport": ""
    },
    "homeModifications": []
  }
}`),
		Instruction: strictFillInstruction + "\nGet the answer for each value.",
	},
	{
		Name: "careTeamInformation",
		Template: json.RawMessage(`{
  "careTeamInformation": {
    "listOfHealthcareProviders": {
      "primaryCarePhysician": {
        "name": "",
        "contactDetails": ""
      },
      "specialists": [],
      "otherProviders": []
    }
  }
}`),
		Instruction: strictFillInstruction + "\nFor contact information provide the contact details of the provider.",
	},
	{
		Name: "medications",
		Template: json.RawMessage(`{
  "medications": {
    "medicationList": [
      {
        "name": "",
        "dosage": "",
        "form": "",
        "quantity": "",
        "route": "",
        "frequency": "",
        "date": "",
        "action": ""
      }
    ],
    "medicationReconciliation": ""
  }
}`),
		Instruction: strictFillInstruction + "\nGet the answer for each value.",
	},
	{
		Name: "woundCareOrders",
		Template: json.RawMessage(`{
  "woundCareOrders": {
    "description": "",
    "orders": {
      "typeOfDressing": {
        "description": ""
      },
      "frequencyOfDressingChanges": {
        "description": ""
      },
      "cleaningInstructions": {
        "description": ""
      },
      "debridement": {
        "description": "",
        "performedBy": ""
      },
      "woundMonitoring": {
        "description": "",
        "parameters": [],
        "signsOfInfection": []
      },
      "adjunctTherapies": {
        "description": ""
      }
    }
  }
}`),
		Instruction: strictFillInstruction + "\nGet the answer for each value.",
	},
}

// Catalog returns the fixed, ordered section list. Callers must treat the
// returned slice as read-only.
func Catalog() []Section {
	return catalog
}

// Size is the number of sections in the catalog.
func Size() int {
	return len(catalog)
}

// TotalLeafFields is the expected leaf-field count across all section
// templates, the denominator of the completeness metric.
func TotalLeafFields() int {
	return totalLeaves
}

var totalLeaves = func() int {
	n := 0
	for _, s := range catalog {
		var v any
		if err := json.Unmarshal(s.Template, &v); err != nil {
			panic(fmt.Sprintf("schema: invalid template %q: %v", s.Name, err))
		}
		n += CountLeaves(v)
	}
	return n
}()

// CountLeaves counts leaf positions in a decoded JSON value. Objects and
// arrays recurse; everything else (including null) is one leaf. An empty
// array counts as one leaf so list-valued fields are expected exactly once.
func CountLeaves(v any) int {
	switch t := v.(type) {
	case map[string]any:
		n := 0
		for _, child := range t {
			n += CountLeaves(child)
		}
		return n
	case []any:
		if len(t) == 0 {
			return 1
		}
		n := 0
		for _, child := range t {
			n += CountLeaves(child)
		}
		return n
	default:
		return 1
	}
}

// CountFilledLeaves counts leaves carrying a real extracted value: non-null,
// and for strings neither empty nor the "Not Found" marker.
func CountFilledLeaves(v any) int {
	switch t := v.(type) {
	case map[string]any:
		n := 0
		for _, child := range t {
			n += CountFilledLeaves(child)
		}
		return n
	case []any:
		n := 0
		for _, child := range t {
			n += CountFilledLeaves(child)
		}
		return n
	case string:
		if t == "" || t == "Not Found" {
			return 0
		}
		return 1
	case nil:
		return 0
	default:
		return 1
	}
}
