package config

type WorkerKeyStruct struct {
	ReapBlobsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	ReapBlobsQueue: "reap_blobs_queue",
}
