package state

// Storage keys. These are a wire contract with earlier builds of the app;
// do not rename.
const (
	KeyCurrentPosition  = "catcha.position.current"
	KeyWayfareTrack     = "catcha.wayfare.track"
	KeyWayfareMeta      = "catcha.wayfare.meta"
	KeySettings         = "catcha.settings"
	KeyAPIToken         = "catcha.api.token"
	KeyLiveTrackInfo    = "catcha.liveTrack.info"
	KeyWatchCoordinates = "catcha.watch.coordinates"
)
