package config

type WorkerKeyStruct struct {
	PersistAnswersQueue     string
	PersistSubmissionsQueue string
	PersistViolationsQueue  string
}

var WorkerKey = &WorkerKeyStruct{
	PersistAnswersQueue:     "persist_answers_queue",
	PersistSubmissionsQueue: "persist_submissions_queue",
	PersistViolationsQueue:  "persist_violations_queue",
}
