package consts

// GeneralCapabilities is the reply for messages that match no intent group.
const GeneralCapabilities = `Terra Construction Co-Pilot

I can help you with:

- Ghost Cycles: "Show me Ghost Cycle alerts" or "Which equipment is wasting fuel?"
- Traffic & Routes: "Any choke points?" or "Best route to dump site?"
- Cycle Times: "What's the average cycle time?" or "Predict my next cycle"
- Fleet Status: "Current fleet status" or "How many trucks are active?"
- Document Search: "Find safety procedures" or "Search geotechnical reports"
- ML Insights: "Explain the Ghost Cycle model" or "What features predict choke points?"

What would you like to know?`
