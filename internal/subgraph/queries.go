package subgraph

const ticksQuery = `
query GetTicks {
  tickss {
    items {
      id
      is_buy
      tick
      timestamp
      volume
    }
  }
}`

const currentTicksQuery = `
query GetCurrentTicks {
  setCurrentTickEventss {
    items {
      id
      tick
      timestamp
    }
  }
}`

const ordersQuery = `
query GetOrderHistory {
  placeOrderEventss {
    items {
      volume
      user
      timestamp
      tick
      remaining_volume
      order_index
      is_market
      is_buy
      id
    }
  }
}`
