package config

type WorkerKeyStruct struct {
	PersistActivitiesQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistActivitiesQueue: "persist_activities_queue",
}
