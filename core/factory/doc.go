// Package factory builds pluggable components, such as metrics sinks, from
// the typed entries of the configuration file. A builder decodes its own
// settings with Decode:
//
//	reg := factory.NewRegistry[metrics.MetricsSink]()
//	reg.Register("influx", func(conf map[string]any) (metrics.MetricsSink, error) {
//	    var c struct{ URL string `json:"url"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return newInfluxSink(c.URL), nil
//	})
//	s, err := reg.Create(factory.Spec{Type: "influx", Conf: map[string]any{"url": "http://influx:8086"}})
package factory
