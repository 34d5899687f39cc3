package intake

// Field definitions shared by the tool endpoints. Schemas combine these.
var (
	PatientID = Field{
		Key:     "patient_id",
		Aliases: []string{"patientId", "id"},
		Coerce:  ID,
		Prompt:  "I lost the Patient ID. Please ask the user for their ID again.",
	}
	DoctorName = Field{
		Key:     "doctor_name",
		Aliases: []string{"doctor", "doctorName"},
		Prompt:  "Please provide a doctor name.",
	}
	BranchID = Field{
		Key:     "branch_id",
		Aliases: []string{"branchId", "branch"},
		Coerce:  OptionalID,
	}
	Speciality = Field{
		Key:     "speciality",
		Aliases: []string{"specialization", "category", "type"},
	}
	Date = Field{
		Key:      "date",
		Aliases:  []string{"appointment_date", "day"},
		Prompt:   "I need the appointment date. Please ask the user which date they want.",
		Temporal: true,
	}
	Time = Field{
		Key:      "time",
		Aliases:  []string{"appointment_time", "slot"},
		Prompt:   "I need the appointment time. Please ask the user: 'What time would you like to book?' and then call this tool again with the time filled in.",
		Temporal: true,
	}
	NewDate = Field{
		Key:      "new_date",
		Aliases:  []string{"date", "newDate"},
		Prompt:   "I need the new date. Please ask the user: 'What date would you like to move your appointment to?'",
		Temporal: true,
	}
	NewTime = Field{
		Key:      "new_time",
		Aliases:  []string{"time", "newTime"},
		Prompt:   "I need the new time. Please ask the user: 'What time works for you?'",
		Temporal: true,
	}
	TestName = Field{
		Key:     "test_name",
		Aliases: []string{"test", "name"},
		Prompt:  "Which test would you like?",
	}
	Department = Field{
		Key:     "department",
		Aliases: []string{"dept"},
	}
	Query = Field{
		Key:     "query",
		Aliases: []string{"question", "q", "text"},
		Prompt:  "What would you like to know about the hospital?",
	}
)
