package config

const (
	// TopicSeedRequest carries batch seeding requests for the seed worker.
	TopicSeedRequest = "seed.request"

	// TopicSeedProgress receives every progress event of a worker-driven batch.
	TopicSeedProgress = "seed.progress"

	// ChannelSeedWorker is the consumer channel on TopicSeedRequest.
	ChannelSeedWorker = "seed-worker"
)
