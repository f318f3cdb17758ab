package sitemap

// PreviewPayload is a two-switch watch sitemap used by preview mode.
var PreviewPayload = []byte(`{"id":"watch","title":"watch","link":"http://192.168.2.15:8081/rest/sitemaps/watch/watch","leaf":true,"timeout":false,"widgets":[{"widgetId":"00","type":"Switch","label":"Licht Keller WC Decke","icon":"switch","mappings":[],"item":{"link":"http://192.168.2.15:8081/rest/items/lcnLightSwitch6_1","state":"OFF","editable":false,"type":"Switch","name":"lcnLightSwitch6_1","label":"Licht Keller WC Decke","tags":["Lighting"],"groupNames":["gKellerLicht","gLcn"]},"widgets":[]},{"widgetId":"01","type":"Switch","label":"Licht Oberlicht","icon":"switch","mappings":[],"item":{"link":"http://192.168.2.15:8081/rest/items/lcnLightSwitch14_1","state":"ON","editable":false,"type":"Switch","name":"lcnLightSwitch14_1","label":"Licht Oberlicht","tags":["Lighting"],"groupNames":["gEGLicht","G_PresenceSimulation","gLcn"]},"widgets":[]}]}`)

// PreviewRootURL is the server the preview payload links point at.
const PreviewRootURL = "http://192.168.2.15:8081"
